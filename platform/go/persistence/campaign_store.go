package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// CampaignRecord mirrors a row in the campaigns table.
type CampaignRecord struct {
	CampaignID  uuid.UUID
	TenantID    string
	Name        string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

/// CampaignChallengeRecord mirrors a row in the campaign_challenges table:
// the association between a campaign and a global challenge plus its
// tenant-visible configuration.
type CampaignChallengeRecord struct {
	CampaignChallengeID uuid.UUID
	CampaignID          uuid.UUID
	ChallengeID         uuid.UUID
	Name                string
	Description         *string
	Frequency           string
	Points              int
	Config              []byte
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CampaignStore exposes persistence helpers for campaigns and their challenge
// associations. Every campaign query carries the tenant predicate; an id that
// resolves under a different tenant is indistinguishable from an absent one.
type CampaignStore struct {
	pool *pgxpool.Pool
}

// NewCampaignStore returns a store instance.
func NewCampaignStore(pool *pgxpool.Pool) (*CampaignStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CampaignStore{pool: pool}, nil
}

const campaignColumns = "campaign_id, tenant_id, name, description, starts_at, ends_at, status, created_at, updated_at"
const campaignChallengeColumns = "campaign_challenge_id, campaign_id, challenge_id, name, description, frequency, points, config, created_at, updated_at"

// CreateCampaign inserts a new campaign owned by its tenant.
func (s *CampaignStore) CreateCampaign(ctx context.Context, record CampaignRecord) (CampaignRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (campaign_id, tenant_id, name, description, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, CampaignsTable, campaignColumns)

	created, err := scanCampaign(s.pool.QueryRow(ctx, query,
		record.CampaignID,
		record.TenantID,
		record.Name,
		record.Description,
		record.StartsAt,
		record.EndsAt,
		record.Status,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return CampaignRecord{}, ErrTenantReferenceMissing
		}
		return CampaignRecord{}, fmt.Errorf("insert campaign: %w", err)
	}

	return created, nil
}

// GetCampaign fetches a campaign scoped to its tenant.
func (s *CampaignStore) GetCampaign(ctx context.Context, tenantID string, id uuid.UUID) (CampaignRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE campaign_id = $1 AND tenant_id = $2`, campaignColumns, CampaignsTable)

	record, err := scanCampaign(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CampaignRecord{}, ErrCampaignNotFound
		}
		return CampaignRecord{}, fmt.Errorf("get campaign: %w", err)
	}

	return record, nil
}

// UpdateCampaign writes the mutable fields. The caller merges the patch into
// the current record first, so all mutable columns are written.
func (s *CampaignStore) UpdateCampaign(ctx context.Context, record CampaignRecord) (CampaignRecord, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $3, description = $4, starts_at = $5, ends_at = $6, status = $7, updated_at = NOW()
		WHERE campaign_id = $1 AND tenant_id = $2
		RETURNING %s
	`, CampaignsTable, campaignColumns)

	updated, err := scanCampaign(s.pool.QueryRow(ctx, query,
		record.CampaignID,
		record.TenantID,
		record.Name,
		record.Description,
		record.StartsAt,
		record.EndsAt,
		record.Status,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CampaignRecord{}, ErrCampaignNotFound
		}
		return CampaignRecord{}, fmt.Errorf("update campaign: %w", err)
	}

	return updated, nil
}

// DeleteCampaign removes the campaign and every dependent association row in
// one transaction, so no reader observes a parent-deleted-but-children-
// orphaned state.
func (s *CampaignStore) DeleteCampaign(ctx context.Context, tenantID string, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete campaign tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	owned := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE campaign_id = $1 AND tenant_id = $2)`, CampaignsTable)
	var exists bool
	if err := tx.QueryRow(ctx, owned, id, tenantID).Scan(&exists); err != nil {
		return fmt.Errorf("check campaign ownership: %w", err)
	}
	if !exists {
		return ErrCampaignNotFound
	}

	cascades := []string{
		fmt.Sprintf(`DELETE FROM %s WHERE campaign_id = $1`, ParticipantChallengesTable),
		fmt.Sprintf(`DELETE FROM %s WHERE campaign_id = $1`, CampaignParticipantsTable),
		fmt.Sprintf(`DELETE FROM %s WHERE campaign_id = $1`, CampaignChallengesTable),
		fmt.Sprintf(`DELETE FROM %s WHERE campaign_id = $1`, CampaignsTable),
	}
	for _, stmt := range cascades {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade delete campaign: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete campaign tx: %w", err)
	}

	return nil
}

// ListCampaignsParams captures the tenant predicate and filters for listing.
type ListCampaignsParams struct {
	TenantID string
	Status   *string
}

// ListCampaigns returns a cursor page of the tenant's campaigns.
func (s *CampaignStore) ListCampaigns(ctx context.Context, params ListCampaignsParams, opts pagination.Options) (pagination.Page[CampaignRecord], error) {
	opts = opts.Normalize()

	where := []string{"tenant_id = $1"}
	args := []any{params.TenantID}

	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
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
	`, campaignColumns, CampaignsTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[CampaignRecord]{}, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var records []CampaignRecord
	for rows.Next() {
		record, scanErr := scanCampaign(rows)
		if scanErr != nil {
			return pagination.Page[CampaignRecord]{}, fmt.Errorf("scan campaign: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[CampaignRecord]{}, err
	}

	return pagination.NewPage(records, opts, campaignCursor(opts.Field)), nil
}

// AttachChallenge inserts a campaign-challenge association. The
// (campaign, challenge) pair is unique; a duplicate loses to the constraint.
func (s *CampaignStore) AttachChallenge(ctx context.Context, record CampaignChallengeRecord) (CampaignChallengeRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (campaign_challenge_id, campaign_id, challenge_id, name, description, frequency, points, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, CampaignChallengesTable, campaignChallengeColumns)

	created, err := scanCampaignChallenge(s.pool.QueryRow(ctx, query,
		record.CampaignChallengeID,
		record.CampaignID,
		record.ChallengeID,
		record.Name,
		record.Description,
		record.Frequency,
		record.Points,
		record.Config,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return CampaignChallengeRecord{}, ErrDuplicateAssociation
		}
		if isForeignKeyViolation(err) {
			return CampaignChallengeRecord{}, ErrAssociationNotFound
		}
		return CampaignChallengeRecord{}, fmt.Errorf("insert campaign challenge: %w", err)
	}

	return created, nil
}

// DetachChallenge removes one association row from a campaign.
func (s *CampaignStore) DetachChallenge(ctx context.Context, campaignID, campaignChallengeID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE campaign_challenge_id = $1 AND campaign_id = $2`, CampaignChallengesTable)

	tag, err := s.pool.Exec(ctx, query, campaignChallengeID, campaignID)
	if err != nil {
		return fmt.Errorf("delete campaign challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssociationNotFound
	}

	return nil
}

// ListChallenges returns a cursor page of a campaign's challenge associations.
func (s *CampaignStore) ListChallenges(ctx context.Context, campaignID uuid.UUID, opts pagination.Options) (pagination.Page[CampaignChallengeRecord], error) {
	opts = opts.Normalize()

	where := []string{"campaign_id = $1"}
	args := []any{campaignID}
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
	`, campaignChallengeColumns, CampaignChallengesTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[CampaignChallengeRecord]{}, fmt.Errorf("list campaign challenges: %w", err)
	}
	defer rows.Close()

	var records []CampaignChallengeRecord
	for rows.Next() {
		record, scanErr := scanCampaignChallenge(rows)
		if scanErr != nil {
			return pagination.Page[CampaignChallengeRecord]{}, fmt.Errorf("scan campaign challenge: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[CampaignChallengeRecord]{}, err
	}

	return pagination.NewPage(records, opts, campaignChallengeCursor(opts.Field)), nil
}

// ChallengeAttached reports whether the campaign carries an association with
// the challenge.
func (s *CampaignStore) ChallengeAttached(ctx context.Context, campaignID, challengeID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE campaign_id = $1 AND challenge_id = $2)`, CampaignChallengesTable)

	var exists bool
	if err := s.pool.QueryRow(ctx, query, campaignID, challengeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check campaign challenge: %w", err)
	}

	return exists, nil
}

// CampaignsWithChallenge returns the ids of the tenant's campaigns that carry
// an association with the challenge, oldest attachment first.
func (s *CampaignStore) CampaignsWithChallenge(ctx context.Context, tenantID string, challengeID uuid.UUID) ([]uuid.UUID, error) {
	query := fmt.Sprintf(`
		SELECT cc.campaign_id
		FROM %s cc
		JOIN %s c ON c.campaign_id = cc.campaign_id
		WHERE cc.challenge_id = $1 AND c.tenant_id = $2
		ORDER BY cc.created_at ASC
	`, CampaignChallengesTable, CampaignsTable)

	rows, err := s.pool.Query(ctx, query, challengeID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns with challenge: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func campaignCursor(field pagination.Field) func(CampaignRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r CampaignRecord) time.Time { return r.UpdatedAt }
	}
	return func(r CampaignRecord) time.Time { return r.CreatedAt }
}

func campaignChallengeCursor(field pagination.Field) func(CampaignChallengeRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r CampaignChallengeRecord) time.Time { return r.UpdatedAt }
	}
	return func(r CampaignChallengeRecord) time.Time { return r.CreatedAt }
}

func scanCampaign(scanner rowScanner) (CampaignRecord, error) {
	var record CampaignRecord
	if err := scanner.Scan(
		&record.CampaignID,
		&record.TenantID,
		&record.Name,
		&record.Description,
		&record.StartsAt,
		&record.EndsAt,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return CampaignRecord{}, err
	}
	return record, nil
}

func scanCampaignChallenge(scanner rowScanner) (CampaignChallengeRecord, error) {
	var record CampaignChallengeRecord
	if err := scanner.Scan(
		&record.CampaignChallengeID,
		&record.CampaignID,
		&record.ChallengeID,
		&record.Name,
		&record.Description,
		&record.Frequency,
		&record.Points,
		&record.Config,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return CampaignChallengeRecord{}, err
	}
	return record, nil
}
