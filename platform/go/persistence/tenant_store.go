package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// TenantRecord mirrors a row in the tenants table. The identifier is
// caller-supplied and immutable; rows are never hard-deleted.
type TenantRecord struct {
	TenantID  string
	Name      string
	Status    string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantStore exposes persistence helpers for the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore returns a store instance.
func NewTenantStore(pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

const tenantColumns = "tenant_id, name, status, deleted_at, created_at, updated_at"

// ResolveOrCreate looks up the tenant, inserting it with active status on
// first contact. The insert-if-absent rides the primary key constraint, so
// concurrent first contacts converge on a single row: the loser's insert is a
// no-op and the follow-up select observes the winner's row.
func (s *TenantStore) ResolveOrCreate(ctx context.Context, tenantID string) (TenantRecord, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return TenantRecord{}, errors.New("tenant id is required")
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, name, status)
		VALUES ($1, $1, 'active')
		ON CONFLICT (tenant_id) DO NOTHING
	`, TenantsTable)
	if _, err := s.pool.Exec(ctx, insert, tenantID); err != nil {
		return TenantRecord{}, fmt.Errorf("insert tenant: %w", err)
	}

	return s.Get(ctx, tenantID)
}

// Get fetches a tenant by identifier.
func (s *TenantStore) Get(ctx context.Context, tenantID string) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1`, tenantColumns, TenantsTable)

	record, err := scanTenant(s.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrTenantNotFound
		}
		return TenantRecord{}, fmt.Errorf("get tenant: %w", err)
	}

	return record, nil
}

// UpdateName changes the display name only; the identifier never changes.
func (s *TenantStore) UpdateName(ctx context.Context, tenantID, name string) (TenantRecord, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, updated_at = NOW()
		WHERE tenant_id = $1
		RETURNING %s
	`, TenantsTable, tenantColumns)

	record, err := scanTenant(s.pool.QueryRow(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrTenantNotFound
		}
		return TenantRecord{}, fmt.Errorf("update tenant name: %w", err)
	}

	return record, nil
}

// UpdateStatus transitions the tenant lifecycle state. Moving to deleted
// stamps deleted_at; any other transition clears it.
func (s *TenantStore) UpdateStatus(ctx context.Context, tenantID, status string) (TenantRecord, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    deleted_at = CASE WHEN $2 = 'deleted' THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE tenant_id = $1
		RETURNING %s
	`, TenantsTable, tenantColumns)

	record, err := scanTenant(s.pool.QueryRow(ctx, query, tenantID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrTenantNotFound
		}
		return TenantRecord{}, fmt.Errorf("update tenant status: %w", err)
	}

	return record, nil
}

// List returns a cursor page over all tenants.
func (s *TenantStore) List(ctx context.Context, opts pagination.Options) (pagination.Page[TenantRecord], error) {
	opts = opts.Normalize()

	where := []string{"1=1"}
	var args []any
	if opts.Cursor != nil {
		args = append(args, *opts.Cursor)
		where = append(where, opts.CursorCondition(len(args)))
	}
	args = append(args, opts.FetchLimit())

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		%s
		LIMIT $%d
	`, tenantColumns, TenantsTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[TenantRecord]{}, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var records []TenantRecord
	for rows.Next() {
		record, scanErr := scanTenant(rows)
		if scanErr != nil {
			return pagination.Page[TenantRecord]{}, fmt.Errorf("scan tenant: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[TenantRecord]{}, err
	}

	return pagination.NewPage(records, opts, tenantCursor(opts.Field)), nil
}

func tenantCursor(field pagination.Field) func(TenantRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r TenantRecord) time.Time { return r.UpdatedAt }
	}
	return func(r TenantRecord) time.Time { return r.CreatedAt }
}

func scanTenant(scanner rowScanner) (TenantRecord, error) {
	var record TenantRecord
	if err := scanner.Scan(
		&record.TenantID,
		&record.Name,
		&record.Status,
		&record.DeletedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return TenantRecord{}, err
	}
	return record, nil
}
