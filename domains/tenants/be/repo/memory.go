package repo

import (
	"context"
	"sync"
	"time"

	"github.com/loyaltycore/campaigns-api/domains/tenants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]tenant.Tenant
	base time.Time
	seq  int64
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]tenant.Tenant),
		base: time.Now().UTC(),
	}
}

// tick returns strictly increasing timestamps so cursor values never tie.
// Callers must hold the write lock.
func (r *MemoryRepository) tick() time.Time {
	r.seq++
	return r.base.Add(time.Duration(r.seq) * time.Microsecond)
}

func (r *MemoryRepository) ResolveOrCreate(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[tenantID]; ok {
		return existing, nil
	}

	now := r.tick()
	created := tenant.Tenant{
		ID:        tenantID,
		Name:      tenantID,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byID[tenantID] = created
	return created, nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[tenantID]
	if !ok {
		return tenant.Tenant{}, service.ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepository) UpdateName(ctx context.Context, tenantID, name string) (tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[tenantID]
	if !ok {
		return tenant.Tenant{}, service.ErrNotFound
	}

	t.Name = name
	t.UpdatedAt = r.tick()
	r.byID[tenantID] = t
	return t, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, tenantID string, status tenant.Status) (tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[tenantID]
	if !ok {
		return tenant.Tenant{}, service.ErrNotFound
	}

	t.Status = status
	now := r.tick()
	if status == tenant.StatusDeleted {
		t.DeletedAt = &now
	} else {
		t.DeletedAt = nil
	}
	t.UpdatedAt = now
	r.byID[tenantID] = t
	return t, nil
}

func (r *MemoryRepository) List(ctx context.Context, opts pagination.Options) (pagination.Page[tenant.Tenant], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]tenant.Tenant, 0, len(r.byID))
	for _, t := range r.byID {
		items = append(items, t)
	}

	return pagination.Slice(items, opts, tenantCursor(opts.Field)), nil
}

func tenantCursor(field pagination.Field) func(tenant.Tenant) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(t tenant.Tenant) time.Time { return t.UpdatedAt }
	}
	return func(t tenant.Tenant) time.Time { return t.CreatedAt }
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
