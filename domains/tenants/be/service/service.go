package service

import (
	"context"
	"errors"
	"strings"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/tenant"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError captures input validation problems surfaced by the service.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain-level error sentinel values.
var (
	ErrNotFound = errors.New("tenant not found")
)

// UpdateInput defines the fields a tenant may change about itself. The
// identifier is fixed at first contact and never changes.
type UpdateInput struct {
	Name *string
}

// Repository abstracts tenant persistence.
type Repository interface {
	ResolveOrCreate(ctx context.Context, tenantID string) (tenant.Tenant, error)
	Get(ctx context.Context, tenantID string) (tenant.Tenant, error)
	UpdateName(ctx context.Context, tenantID, name string) (tenant.Tenant, error)
	UpdateStatus(ctx context.Context, tenantID string, status tenant.Status) (tenant.Tenant, error)
	List(ctx context.Context, opts pagination.Options) (pagination.Page[tenant.Tenant], error)
}

// Service exposes the tenants domain operations.
type Service interface {
	ResolveOrCreate(ctx context.Context, tenantID string) (tenant.Tenant, error)
	Get(ctx context.Context, tenantID string) (tenant.Tenant, error)
	Update(ctx context.Context, tenantID string, input UpdateInput) (tenant.Tenant, error)
	UpdateStatus(ctx context.Context, tenantID string, status tenant.Status) (tenant.Tenant, error)
	List(ctx context.Context, opts pagination.Options) (pagination.Page[tenant.Tenant], error)
}

type service struct {
	repo Repository
}

// New builds a tenants Service backed by the provided repository.
func New(repo Repository) Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	return &service{repo: repo}
}

// ResolveOrCreate provisions the tenant on first contact. Concurrent first
// contacts converge on a single record; later calls are plain reads.
func (s *service) ResolveOrCreate(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return tenant.Tenant{}, &ValidationError{Fields: FieldErrors{
			"tenant_id": {"tenant id is required"},
		}}
	}

	record, err := s.repo.ResolveOrCreate(ctx, tenantID)
	if err != nil {
		return tenant.Tenant{}, err
	}

	return record, nil
}

func (s *service) Get(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	return s.repo.Get(ctx, tenantID)
}

func (s *service) Update(ctx context.Context, tenantID string, input UpdateInput) (tenant.Tenant, error) {
	errs := FieldErrors{}

	if input.Name == nil {
		errs.add("body", "at least one field must be provided")
	} else if strings.TrimSpace(*input.Name) == "" {
		errs.add("name", "name is required")
	}

	if len(errs) > 0 {
		return tenant.Tenant{}, &ValidationError{Fields: errs}
	}

	return s.repo.UpdateName(ctx, tenantID, strings.TrimSpace(*input.Name))
}

func (s *service) UpdateStatus(ctx context.Context, tenantID string, status tenant.Status) (tenant.Tenant, error) {
	return s.repo.UpdateStatus(ctx, tenantID, status)
}

func (s *service) List(ctx context.Context, opts pagination.Options) (pagination.Page[tenant.Tenant], error) {
	return s.repo.List(ctx, opts)
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}
