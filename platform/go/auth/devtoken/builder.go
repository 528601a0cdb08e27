package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Params captures the claims required to mint an unsigned JWT for local and
// CI environments. All fields are provided by the caller; no environment
// variables are read so the builder stays deterministic for tooling.
type Params struct {
	TenantID  string        // tenant_id claim (required)
	Subject   string        // sub claim; defaults to TenantID
	ExpiresIn time.Duration // relative expiry; default 1h if zero
}

// Build returns a JWT string with alg "none" and an empty signature segment.
// The payload carries the tenant_id claim the access gate reads, so the token
// flows through the middleware unchanged in development setups.
func Build(p Params, now time.Time) (string, error) {
	tenantID := strings.TrimSpace(p.TenantID)
	if tenantID == "" {
		return "", errors.New("tenant id is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		subject = tenantID
	}

	payload := map[string]interface{}{
		"tenant_id": tenantID,
		"sub":       subject,
		"iat":       now.Unix(),
		"exp":       now.Add(expiresIn).Unix(),
	}

	header := map[string]interface{}{
		"alg": "none",
		"typ": "JWT",
	}

	headerSegment, err := encodeSegment(header)
	if err != nil {
		return "", err
	}

	payloadSegment, err := encodeSegment(payload)
	if err != nil {
		return "", err
	}

	return headerSegment + "." + payloadSegment + ".", nil
}

func encodeSegment(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
