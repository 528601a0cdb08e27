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

// ChallengeRecord mirrors a row in the challenges table. Challenges are
// global: no tenant column, shared across every tenant's campaigns.
type ChallengeRecord struct {
	ChallengeID uuid.UUID
	Name        string
	Description *string
	Metadata    []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChallengeStore exposes persistence helpers for the challenges table.
type ChallengeStore struct {
	pool *pgxpool.Pool
}

// NewChallengeStore returns a store instance.
func NewChallengeStore(pool *pgxpool.Pool) (*ChallengeStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ChallengeStore{pool: pool}, nil
}

const challengeColumns = "challenge_id, name, description, metadata, created_at, updated_at"

// CreateChallenge inserts a new global challenge.
func (s *ChallengeStore) CreateChallenge(ctx context.Context, record ChallengeRecord) (ChallengeRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (challenge_id, name, description, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, ChallengesTable, challengeColumns)

	created, err := scanChallenge(s.pool.QueryRow(ctx, query,
		record.ChallengeID,
		record.Name,
		record.Description,
		record.Metadata,
	))
	if err != nil {
		return ChallengeRecord{}, fmt.Errorf("insert challenge: %w", err)
	}

	return created, nil
}

// GetChallenge fetches a challenge by id.
func (s *ChallengeStore) GetChallenge(ctx context.Context, id uuid.UUID) (ChallengeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE challenge_id = $1`, challengeColumns, ChallengesTable)

	record, err := scanChallenge(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChallengeRecord{}, ErrChallengeNotFound
		}
		return ChallengeRecord{}, fmt.Errorf("get challenge: %w", err)
	}

	return record, nil
}

// UpdateChallenge writes the mutable fields; the caller merges the patch into
// the current record first.
func (s *ChallengeStore) UpdateChallenge(ctx context.Context, record ChallengeRecord) (ChallengeRecord, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, description = $3, metadata = $4, updated_at = NOW()
		WHERE challenge_id = $1
		RETURNING %s
	`, ChallengesTable, challengeColumns)

	updated, err := scanChallenge(s.pool.QueryRow(ctx, query,
		record.ChallengeID,
		record.Name,
		record.Description,
		record.Metadata,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChallengeRecord{}, ErrChallengeNotFound
		}
		return ChallengeRecord{}, fmt.Errorf("update challenge: %w", err)
	}

	return updated, nil
}

// DeleteChallenge removes a challenge unless any campaign association still
// references it; deletion is refused, never cascaded. The reference check and
// the delete share a transaction so a concurrent attach cannot slip between
// them unobserved.
func (s *ChallengeStore) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete challenge tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	refQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE challenge_id = $1`, CampaignChallengesTable)
	var refs int
	if err := tx.QueryRow(ctx, refQuery, id).Scan(&refs); err != nil {
		return fmt.Errorf("count challenge references: %w", err)
	}
	if refs > 0 {
		return ErrChallengeReferenced
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE challenge_id = $1`, ChallengesTable), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrChallengeReferenced
		}
		return fmt.Errorf("delete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChallengeNotFound
	}

	return tx.Commit(ctx)
}

// ListChallenges returns a cursor page over the global challenge catalog.
func (s *ChallengeStore) ListChallenges(ctx context.Context, opts pagination.Options) (pagination.Page[ChallengeRecord], error) {
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
	`, challengeColumns, ChallengesTable, strings.Join(where, " AND "), opts.OrderBy(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[ChallengeRecord]{}, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var records []ChallengeRecord
	for rows.Next() {
		record, scanErr := scanChallenge(rows)
		if scanErr != nil {
			return pagination.Page[ChallengeRecord]{}, fmt.Errorf("scan challenge: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[ChallengeRecord]{}, err
	}

	return pagination.NewPage(records, opts, challengeCursor(opts.Field)), nil
}

func challengeCursor(field pagination.Field) func(ChallengeRecord) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(r ChallengeRecord) time.Time { return r.UpdatedAt }
	}
	return func(r ChallengeRecord) time.Time { return r.CreatedAt }
}

func scanChallenge(scanner rowScanner) (ChallengeRecord, error) {
	var record ChallengeRecord
	if err := scanner.Scan(
		&record.ChallengeID,
		&record.Name,
		&record.Description,
		&record.Metadata,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return ChallengeRecord{}, err
	}
	return record, nil
}
