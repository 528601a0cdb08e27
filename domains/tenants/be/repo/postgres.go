package repo

import (
	"context"
	"errors"

	"github.com/loyaltycore/campaigns-api/domains/tenants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/persistence"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// PostgresRepository implements the tenant repository using the shared
// persistence layer.
type PostgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by TenantStore.
func NewPostgresRepository(store *persistence.TenantStore) *PostgresRepository {
	if store == nil {
		panic("tenant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) ResolveOrCreate(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	rec, err := r.store.ResolveOrCreate(ctx, tenantID)
	if err != nil {
		return tenant.Tenant{}, mapNotFound(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	rec, err := r.store.Get(ctx, tenantID)
	if err != nil {
		return tenant.Tenant{}, mapNotFound(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, tenantID, name string) (tenant.Tenant, error) {
	rec, err := r.store.UpdateName(ctx, tenantID, name)
	if err != nil {
		return tenant.Tenant{}, mapNotFound(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, tenantID string, status tenant.Status) (tenant.Tenant, error) {
	rec, err := r.store.UpdateStatus(ctx, tenantID, string(status))
	if err != nil {
		return tenant.Tenant{}, mapNotFound(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) List(ctx context.Context, opts pagination.Options) (pagination.Page[tenant.Tenant], error) {
	page, err := r.store.List(ctx, opts)
	if err != nil {
		return pagination.Page[tenant.Tenant]{}, err
	}

	items := make([]tenant.Tenant, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toTenant(rec))
	}

	return pagination.Page[tenant.Tenant]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func toTenant(rec persistence.TenantRecord) tenant.Tenant {
	status, ok := tenant.ParseStatus(rec.Status)
	if !ok {
		status = tenant.StatusSuspended
	}
	return tenant.Tenant{
		ID:        rec.TenantID,
		Name:      rec.Name,
		Status:    status,
		DeletedAt: rec.DeletedAt,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrTenantNotFound) {
		return service.ErrNotFound
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
