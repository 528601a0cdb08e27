package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBuild(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := Build(Params{
		TenantID:  "tenant-dev",
		Subject:   "admin-123",
		ExpiresIn: time.Hour,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header, payload := splitToken(t, token)
	if got, want := header["alg"], "none"; got != want {
		t.Fatalf("header alg = %v, want %v", got, want)
	}

	if got, want := payload["tenant_id"], "tenant-dev"; got != want {
		t.Errorf("tenant_id = %v, want %v", got, want)
	}
	if got, want := payload["sub"], "admin-123"; got != want {
		t.Errorf("sub = %v, want %v", got, want)
	}
	if got, want := payload["iat"], float64(now.Unix()); got != want {
		t.Errorf("iat = %v, want %v", got, want)
	}
	if got, want := payload["exp"], float64(now.Add(time.Hour).Unix()); got != want {
		t.Errorf("exp = %v, want %v", got, want)
	}
}

func TestBuildDefaultsSubjectToTenant(t *testing.T) {
	token, err := Build(Params{TenantID: "tenant-dev"}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, payload := splitToken(t, token)
	if got, want := payload["sub"], "tenant-dev"; got != want {
		t.Errorf("sub = %v, want %v", got, want)
	}
}

func TestBuildRequiresTenant(t *testing.T) {
	if _, err := Build(Params{TenantID: "  "}, time.Time{}); err == nil {
		t.Fatal("expected error for blank tenant id")
	}
}

func splitToken(t *testing.T, token string) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		t.Fatalf("invalid token format: %q", token)
	}

	header := decodeSegment(t, parts[0])
	payload := decodeSegment(t, parts[1])
	return header, payload
}

func decodeSegment(t *testing.T, segment string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal segment: %v", err)
	}
	return out
}
