package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loyaltycore/campaigns-api/platform/go/auth"
)

func token(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return "eyJhbGciOiJub25lIn0." + encoded + "."
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	got, err := auth.ExtractBearerToken(r)
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", got)
}

func TestExtractBearerTokenMissingHeader(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := auth.ExtractBearerToken(r)
	require.ErrorIs(t, err, auth.ErrNoToken)
}

func TestExtractBearerTokenWrongScheme(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := auth.ExtractBearerToken(r)
	require.ErrorIs(t, err, auth.ErrNoToken)
}

func TestDecodeToken(t *testing.T) {
	t.Parallel()

	claims, err := auth.DecodeToken(token(t, map[string]interface{}{
		"tenant_id": "acme",
		"sub":       "user-1",
	}))
	require.NoError(t, err)

	tenantID, ok := claims.TenantID()
	require.True(t, ok)
	require.Equal(t, "acme", tenantID)
}

func TestDecodeTokenFallsBackToSubject(t *testing.T) {
	t.Parallel()

	claims, err := auth.DecodeToken(token(t, map[string]interface{}{"sub": "acme"}))
	require.NoError(t, err)

	tenantID, ok := claims.TenantID()
	require.True(t, ok)
	require.Equal(t, "acme", tenantID)
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := auth.DecodeToken("notatoken")
	require.Error(t, err)

	_, err = auth.DecodeToken("header.!!!invalid-base64!!!.sig")
	require.Error(t, err)
}

func TestTenantIDMissingClaims(t *testing.T) {
	t.Parallel()

	claims, err := auth.DecodeToken(token(t, map[string]interface{}{"aud": "x"}))
	require.NoError(t, err)

	_, ok := claims.TenantID()
	require.False(t, ok)
}

func TestTenantIDBlankClaimIsRejected(t *testing.T) {
	t.Parallel()

	claims, err := auth.DecodeToken(token(t, map[string]interface{}{"tenant_id": "   "}))
	require.NoError(t, err)

	_, ok := claims.TenantID()
	require.False(t, ok)
}
