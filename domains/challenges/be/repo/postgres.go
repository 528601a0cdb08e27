package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/domains/challenges/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/persistence"
)

// PostgresRepository implements the challenge repository using the shared
// persistence layer.
type PostgresRepository struct {
	store *persistence.ChallengeStore
}

// NewPostgresRepository constructs a repository backed by ChallengeStore.
func NewPostgresRepository(store *persistence.ChallengeStore) *PostgresRepository {
	if store == nil {
		panic("challenge store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, c service.Challenge) (service.Challenge, error) {
	rec, err := r.store.CreateChallenge(ctx, toRecord(c))
	if err != nil {
		return service.Challenge{}, err
	}
	return toChallenge(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Challenge, error) {
	rec, err := r.store.GetChallenge(ctx, id)
	if err != nil {
		return service.Challenge{}, mapError(err)
	}
	return toChallenge(rec), nil
}

func (r *PostgresRepository) Update(ctx context.Context, c service.Challenge) (service.Challenge, error) {
	rec, err := r.store.UpdateChallenge(ctx, toRecord(c))
	if err != nil {
		return service.Challenge{}, mapError(err)
	}
	return toChallenge(rec), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteChallenge(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, opts pagination.Options) (pagination.Page[service.Challenge], error) {
	page, err := r.store.ListChallenges(ctx, opts)
	if err != nil {
		return pagination.Page[service.Challenge]{}, err
	}

	items := make([]service.Challenge, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toChallenge(rec))
	}

	return pagination.Page[service.Challenge]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func toRecord(c service.Challenge) persistence.ChallengeRecord {
	return persistence.ChallengeRecord{
		ChallengeID: c.ID,
		Name:        c.Name,
		Description: c.Description,
		Metadata:    c.Metadata,
	}
}

func toChallenge(rec persistence.ChallengeRecord) service.Challenge {
	return service.Challenge{
		ID:          rec.ChallengeID,
		Name:        rec.Name,
		Description: rec.Description,
		Metadata:    rec.Metadata,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrChallengeNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrChallengeReferenced):
		return service.ErrHasAssociations
	default:
		return err
	}
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
