// Package tenant carries the resolved tenant of a request through the
// context. The access gate middleware attaches it once the tenant has been
// resolved (or JIT-created) and checked for active status; domain handlers
// read it back to scope every store query.
package tenant

import (
	"context"
	"time"
)

// Status is the tri-state tenant lifecycle. Suspended and deleted tenants
// keep their rows; status transitions are the only deactivation path.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// ParseStatus reports whether s names a known status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusSuspended, StatusDeleted:
		return Status(s), true
	default:
		return "", false
	}
}

// Tenant is the resolved tenant record attached to authorized requests.
type Tenant struct {
	ID        string
	Name      string
	Status    Status
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the tenant may use the API.
func (t Tenant) IsActive() bool {
	return t.Status == StatusActive
}

type ctxKey struct{}

// WithTenant returns a derived context carrying the resolved tenant.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext extracts the resolved tenant and a boolean indicating presence.
func FromContext(ctx context.Context) (Tenant, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return Tenant{}, false
	}

	t, ok := v.(Tenant)
	return t, ok
}
