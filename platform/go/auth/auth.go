// Package auth extracts caller identity from bearer tokens. Tokens are mock
// credentials: the JWT payload segment is base64-decoded and trusted as-is,
// without signature verification.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken indicates the request carried no usable bearer credential.
var ErrNoToken = errors.New("missing bearer token")

// Claims is the decoded token payload.
type Claims map[string]interface{}

// ExtractBearerToken pulls the credential out of the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrNoToken
	}

	return strings.TrimSpace(parts[1]), nil
}

// DecodeToken parses the payload segment of an unsigned JWT into claims.
func DecodeToken(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, errors.New("invalid token format")
	}

	payload := parts[1]
	switch len(payload) % 4 {
	case 2:
		payload += "=="
	case 3:
		payload += "="
	}

	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	claims := make(Claims)
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	return claims, nil
}

// TenantID resolves the tenant identifier from the claims, preferring the
// dedicated tenant_id claim and falling back to the subject.
func (c Claims) TenantID() (string, bool) {
	for _, key := range []string{"tenant_id", "sub"} {
		if v, ok := c[key]; ok {
			if s, valid := v.(string); valid && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}
