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

// ParticipantRecord mirrors a row in the participants table.
type ParticipantRecord struct {
	ParticipantID uuid.UUID
	TenantID      string
	FullName      string
	Nickname      string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CampaignParticipantRecord mirrors a row in the campaign_participants table.
type CampaignParticipantRecord struct {
	CampaignParticipantID uuid.UUID
	CampaignID            uuid.UUID
	ParticipantID         uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ParticipantChallengeRecord mirrors a row in the participant_challenges
// table. The campaign column records which campaign the enrollment was made
// through.
type ParticipantChallengeRecord struct {
	ParticipantChallengeID uuid.UUID
	ParticipantID          uuid.UUID
	ChallengeID            uuid.UUID
	CampaignID             uuid.UUID
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ParticipantStore exposes persistence helpers for participants and their
// association tables.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

// NewParticipantStore returns a store instance.
func NewParticipantStore(pool *pgxpool.Pool) (*ParticipantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ParticipantStore{pool: pool}, nil
}

const participantColumns = "participant_id, tenant_id, full_name, nickname, status, created_at, updated_at"

// CreateParticipant inserts a participant under its tenant. Nickname
// collisions within the tenant surface as ErrNicknameTaken.
func (s *ParticipantStore) CreateParticipant(ctx context.Context, record ParticipantRecord) (ParticipantRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (participant_id, tenant_id, full_name, nickname, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, ParticipantsTable, participantColumns)

	created, err := scanParticipant(s.pool.QueryRow(ctx, query,
		record.ParticipantID,
		record.TenantID,
		record.FullName,
		record.Nickname,
		record.Status,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return ParticipantRecord{}, ErrNicknameTaken
		}
		if isForeignKeyViolation(err) {
			return ParticipantRecord{}, ErrTenantReferenceMissing
		}
		return ParticipantRecord{}, fmt.Errorf("insert participant: %w", err)
	}

	return created, nil
}

// GetParticipant fetches a participant scoped to the tenant. A row owned by a
// different tenant is indistinguishable from an absent one.
func (s *ParticipantStore) GetParticipant(ctx context.Context, tenantID string, id uuid.UUID) (ParticipantRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE participant_id = $1 AND tenant_id = $2
	`, participantColumns, ParticipantsTable)

	record, err := scanParticipant(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ParticipantRecord{}, ErrParticipantNotFound
		}
		return ParticipantRecord{}, fmt.Errorf("get participant: %w", err)
	}

	return record, nil
}

// UpdateParticipant writes the mutable fields; the caller merges the patch
// into the current record first.
func (s *ParticipantStore) UpdateParticipant(ctx context.Context, record ParticipantRecord) (ParticipantRecord, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET full_name = $3, nickname = $4, status = $5, updated_at = NOW()
		WHERE participant_id = $1 AND tenant_id = $2
		RETURNING %s
	`, ParticipantsTable, participantColumns)

	updated, err := scanParticipant(s.pool.QueryRow(ctx, query,
		record.ParticipantID,
		record.TenantID,
		record.FullName,
		record.Nickname,
		record.Status,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ParticipantRecord{}, ErrParticipantNotFound
		}
		if isUniqueViolation(err) {
			return ParticipantRecord{}, ErrNicknameTaken
		}
		return ParticipantRecord{}, fmt.Errorf("update participant: %w", err)
	}

	return updated, nil
}

// DeleteParticipant removes the participant and every association that
// references it in one transaction. Ownership is checked first so a foreign
// row reports not found without touching the child tables.
func (s *ParticipantStore) DeleteParticipant(ctx context.Context, tenantID string, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete participant tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ownership := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE participant_id = $1 AND tenant_id = $2)
	`, ParticipantsTable)
	var owned bool
	if err := tx.QueryRow(ctx, ownership, id, tenantID).Scan(&owned); err != nil {
		return fmt.Errorf("check participant ownership: %w", err)
	}
	if !owned {
		return ErrParticipantNotFound
	}

	cascade := []string{
		fmt.Sprintf(`DELETE FROM %s WHERE participant_id = $1`, ParticipantChallengesTable),
		fmt.Sprintf(`DELETE FROM %s WHERE participant_id = $1`, CampaignParticipantsTable),
		fmt.Sprintf(`DELETE FROM %s WHERE participant_id = $1`, ParticipantsTable),
	}
	for _, stmt := range cascade {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade delete participant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListParticipantsParams narrows a participant listing. TenantID is
// mandatory; Status and Search are optional filters. Search matches the
// nickname case-insensitively as a substring.
type ListParticipantsParams struct {
	TenantID string
	Status   *string
	Search   *string
}

// ListParticipants returns a cursor page of the tenant's participants.
func (s *ParticipantStore) ListParticipants(ctx context.Context, params ListParticipantsParams, opts pagination.Options) (pagination.Page[ParticipantRecord], error) {
	opts = opts.Normalize()

	where := []string{"tenant_id = $1"}
	args := []any{params.TenantID}
	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Search != nil {
		args = append(args, "%"+*params.Search+"%")
		where = append(where, fmt.Sprintf("nickname ILIKE $%d", len(args)))
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
	`, participantColumns, ParticipantsTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[ParticipantRecord]{}, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var records []ParticipantRecord
	for rows.Next() {
		record, scanErr := scanParticipant(rows)
		if scanErr != nil {
			return pagination.Page[ParticipantRecord]{}, fmt.Errorf("scan participant: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[ParticipantRecord]{}, err
	}

	return pagination.NewPage(records, opts, participantCursor(opts.Field)), nil
}

// JoinCampaign records campaign membership. The pair constraint rejects a
// second join; a missing campaign or participant surfaces as an absent
// association.
func (s *ParticipantStore) JoinCampaign(ctx context.Context, record CampaignParticipantRecord) (CampaignParticipantRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (campaign_participant_id, campaign_id, participant_id)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, CampaignParticipantsTable, campaignParticipantColumns)

	created, err := scanCampaignParticipant(s.pool.QueryRow(ctx, query,
		record.CampaignParticipantID,
		record.CampaignID,
		record.ParticipantID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return CampaignParticipantRecord{}, ErrDuplicateAssociation
		}
		if isForeignKeyViolation(err) {
			return CampaignParticipantRecord{}, ErrAssociationNotFound
		}
		return CampaignParticipantRecord{}, fmt.Errorf("join campaign: %w", err)
	}

	return created, nil
}

// LeaveCampaign removes campaign membership by pair.
func (s *ParticipantStore) LeaveCampaign(ctx context.Context, campaignID, participantID uuid.UUID) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE campaign_id = $1 AND participant_id = $2
	`, CampaignParticipantsTable)

	tag, err := s.pool.Exec(ctx, query, campaignID, participantID)
	if err != nil {
		return fmt.Errorf("leave campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssociationNotFound
	}

	return nil
}

// MembershipExists reports whether the participant belongs to the campaign.
func (s *ParticipantStore) MembershipExists(ctx context.Context, campaignID, participantID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE campaign_id = $1 AND participant_id = $2)
	`, CampaignParticipantsTable)

	var exists bool
	if err := s.pool.QueryRow(ctx, query, campaignID, participantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return exists, nil
}

const campaignParticipantColumns = "campaign_participant_id, campaign_id, participant_id, created_at, updated_at"

// ListMemberships returns a cursor page of the participant's campaign
// memberships.
func (s *ParticipantStore) ListMemberships(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[CampaignParticipantRecord], error) {
	opts = opts.Normalize()

	where := []string{"participant_id = $1"}
	args := []any{participantID}
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
	`, campaignParticipantColumns, CampaignParticipantsTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[CampaignParticipantRecord]{}, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var records []CampaignParticipantRecord
	for rows.Next() {
		record, scanErr := scanCampaignParticipant(rows)
		if scanErr != nil {
			return pagination.Page[CampaignParticipantRecord]{}, fmt.Errorf("scan membership: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[CampaignParticipantRecord]{}, err
	}

	return pagination.NewPage(records, opts, campaignParticipantCursor(opts.Field)), nil
}

const participantChallengeColumns = "participant_challenge_id, participant_id, challenge_id, campaign_id, created_at, updated_at"

// JoinChallenge records challenge enrollment. The pair constraint rejects a
// second enrollment regardless of campaign.
func (s *ParticipantStore) JoinChallenge(ctx context.Context, record ParticipantChallengeRecord) (ParticipantChallengeRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (participant_challenge_id, participant_id, challenge_id, campaign_id)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, ParticipantChallengesTable, participantChallengeColumns)

	created, err := scanParticipantChallenge(s.pool.QueryRow(ctx, query,
		record.ParticipantChallengeID,
		record.ParticipantID,
		record.ChallengeID,
		record.CampaignID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return ParticipantChallengeRecord{}, ErrDuplicateAssociation
		}
		if isForeignKeyViolation(err) {
			return ParticipantChallengeRecord{}, ErrAssociationNotFound
		}
		return ParticipantChallengeRecord{}, fmt.Errorf("join challenge: %w", err)
	}

	return created, nil
}

// LeaveChallenge removes challenge enrollment by pair.
func (s *ParticipantStore) LeaveChallenge(ctx context.Context, participantID, challengeID uuid.UUID) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE participant_id = $1 AND challenge_id = $2
	`, ParticipantChallengesTable)

	tag, err := s.pool.Exec(ctx, query, participantID, challengeID)
	if err != nil {
		return fmt.Errorf("leave challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssociationNotFound
	}

	return nil
}

// ListEnrollments returns a cursor page of the participant's challenge
// enrollments.
func (s *ParticipantStore) ListEnrollments(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[ParticipantChallengeRecord], error) {
	opts = opts.Normalize()

	where := []string{"participant_id = $1"}
	args := []any{participantID}
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
	`, participantChallengeColumns, ParticipantChallengesTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[ParticipantChallengeRecord]{}, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var records []ParticipantChallengeRecord
	for rows.Next() {
		record, scanErr := scanParticipantChallenge(rows)
		if scanErr != nil {
			return pagination.Page[ParticipantChallengeRecord]{}, fmt.Errorf("scan enrollment: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[ParticipantChallengeRecord]{}, err
	}

	return pagination.NewPage(records, opts, participantChallengeCursor(opts.Field)), nil
}

func participantCursor(field pagination.Field) func(ParticipantRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r ParticipantRecord) time.Time { return r.UpdatedAt }
	}
	return func(r ParticipantRecord) time.Time { return r.CreatedAt }
}

func campaignParticipantCursor(field pagination.Field) func(CampaignParticipantRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r CampaignParticipantRecord) time.Time { return r.UpdatedAt }
	}
	return func(r CampaignParticipantRecord) time.Time { return r.CreatedAt }
}

func participantChallengeCursor(field pagination.Field) func(ParticipantChallengeRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r ParticipantChallengeRecord) time.Time { return r.UpdatedAt }
	}
	return func(r ParticipantChallengeRecord) time.Time { return r.CreatedAt }
}

func scanParticipant(scanner rowScanner) (ParticipantRecord, error) {
	var record ParticipantRecord
	if err := scanner.Scan(
		&record.ParticipantID,
		&record.TenantID,
		&record.FullName,
		&record.Nickname,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return ParticipantRecord{}, err
	}
	return record, nil
}

func scanCampaignParticipant(scanner rowScanner) (CampaignParticipantRecord, error) {
	var record CampaignParticipantRecord
	if err := scanner.Scan(
		&record.CampaignParticipantID,
		&record.CampaignID,
		&record.ParticipantID,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return CampaignParticipantRecord{}, err
	}
	return record, nil
}

func scanParticipantChallenge(scanner rowScanner) (ParticipantChallengeRecord, error) {
	var record ParticipantChallengeRecord
	if err := scanner.Scan(
		&record.ParticipantChallengeID,
		&record.ParticipantID,
		&record.ChallengeID,
		&record.CampaignID,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return ParticipantChallengeRecord{}, err
	}
	return record, nil
}
