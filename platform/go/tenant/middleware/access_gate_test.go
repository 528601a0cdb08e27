package middleware_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant/middleware"
)

func bearerFor(t *testing.T, tenantID string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"tenant_id": tenantID})
	require.NoError(t, err)
	return "Bearer h." + base64.RawURLEncoding.EncodeToString(payload) + ".s"
}

func gateWith(resolve middleware.ResolveFunc) (http.Handler, *tenant.Tenant) {
	var captured tenant.Tenant
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if current, ok := tenant.FromContext(r.Context()); ok {
			captured = current
		}
		w.WriteHeader(http.StatusOK)
	})
	return middleware.AccessGate(resolve, zap.NewNop())(inner), &captured
}

func TestAccessGateResolvesActiveTenant(t *testing.T) {
	t.Parallel()

	handler, captured := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		return tenant.Tenant{ID: tenantID, Name: tenantID, Status: tenant.StatusActive}, nil
	})

	r := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	r.Header.Set("Authorization", bearerFor(t, "acme"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "acme", captured.ID)
}

func TestAccessGateMissingToken(t *testing.T) {
	t.Parallel()

	handler, _ := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		t.Fatal("resolve must not be called")
		return tenant.Tenant{}, nil
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/campaigns", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessGateUndecodableToken(t *testing.T) {
	t.Parallel()

	handler, _ := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		t.Fatal("resolve must not be called")
		return tenant.Tenant{}, nil
	})

	r := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessGateTokenWithoutTenantClaim(t *testing.T) {
	t.Parallel()

	handler, _ := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		t.Fatal("resolve must not be called")
		return tenant.Tenant{}, nil
	})

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"aud":"x"}`))
	r := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	r.Header.Set("Authorization", "Bearer h."+payload+".s")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessGateSuspendedTenant(t *testing.T) {
	t.Parallel()

	handler, _ := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		return tenant.Tenant{ID: tenantID, Status: tenant.StatusSuspended}, nil
	})

	r := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	r.Header.Set("Authorization", bearerFor(t, "acme"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccessGateDeletedTenant(t *testing.T) {
	t.Parallel()

	handler, _ := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		return tenant.Tenant{ID: tenantID, Status: tenant.StatusDeleted}, nil
	})

	r := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	r.Header.Set("Authorization", bearerFor(t, "acme"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccessGateResolutionFailure(t *testing.T) {
	t.Parallel()

	handler, _ := gateWith(func(ctx context.Context, tenantID string) (tenant.Tenant, error) {
		return tenant.Tenant{}, errors.New("db down")
	})

	r := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	r.Header.Set("Authorization", bearerFor(t, "acme"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
