// Package middleware implements the access gate every API request passes
// through: extract the tenant identifier from the bearer credential, resolve
// or JIT-create the tenant, and reject anything that is not active before a
// domain handler runs.
package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/platform/go/auth"
	"github.com/loyaltycore/campaigns-api/platform/go/httpapi"
	"github.com/loyaltycore/campaigns-api/platform/go/logging"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// ResolveFunc looks up a tenant by identifier, creating it with active status
// on first contact. Implemented by the tenants service.
type ResolveFunc func(ctx context.Context, tenantID string) (tenant.Tenant, error)

// AccessGate returns the middleware enforcing the gate. Failure modes:
// no/undecodable credential or no tenant claim -> 401, resolved tenant not
// active -> 403. On success the resolved tenant rides the request context.
func AccessGate(resolve ResolveFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	if resolve == nil {
		panic("access gate: resolve func is required")
	}
	if logger == nil {
		panic("access gate: logger is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				httpapi.WriteError(w, httpapi.KindUnauthenticated, "missing bearer token")
				return
			}

			claims, err := auth.DecodeToken(token)
			if err != nil {
				httpapi.WriteError(w, httpapi.KindUnauthenticated, "invalid bearer token")
				return
			}

			tenantID, ok := claims.TenantID()
			if !ok {
				httpapi.WriteError(w, httpapi.KindUnauthenticated, "tenant claim required")
				return
			}

			resolved, err := resolve(r.Context(), tenantID)
			if err != nil {
				logging.FromRequest(r, logger).Error("resolve tenant", zap.String("tenant_id", tenantID), zap.Error(err))
				httpapi.WriteError(w, httpapi.KindInternal, "tenant resolution failed")
				return
			}

			if !resolved.IsActive() {
				httpapi.WriteError(w, httpapi.KindForbidden, "tenant is not active")
				return
			}

			ctx := tenant.WithTenant(r.Context(), resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
