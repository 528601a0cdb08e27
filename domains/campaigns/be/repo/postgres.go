package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/domains/campaigns/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/persistence"
)

// PostgresRepository implements the campaign repository using the shared
// persistence layer.
type PostgresRepository struct {
	store *persistence.CampaignStore
}

// NewPostgresRepository constructs a repository backed by CampaignStore.
func NewPostgresRepository(store *persistence.CampaignStore) *PostgresRepository {
	if store == nil {
		panic("campaign store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, c service.Campaign) (service.Campaign, error) {
	rec, err := r.store.CreateCampaign(ctx, toRecord(c))
	if err != nil {
		if errors.Is(err, persistence.ErrTenantReferenceMissing) {
			// Owning tenant deleted out-of-band between resolution and insert.
			return service.Campaign{}, &service.ValidationError{Fields: service.FieldErrors{
				"tenant_id": {"owning tenant no longer exists"},
			}}
		}
		return service.Campaign{}, err
	}
	return toCampaign(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (service.Campaign, error) {
	rec, err := r.store.GetCampaign(ctx, tenantID, id)
	if err != nil {
		return service.Campaign{}, mapNotFound(err)
	}
	return toCampaign(rec), nil
}

func (r *PostgresRepository) Update(ctx context.Context, c service.Campaign) (service.Campaign, error) {
	rec, err := r.store.UpdateCampaign(ctx, toRecord(c))
	if err != nil {
		return service.Campaign{}, mapNotFound(err)
	}
	return toCampaign(rec), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	if err := r.store.DeleteCampaign(ctx, tenantID, id); err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, tenantID string, filter service.ListOptions, opts pagination.Options) (pagination.Page[service.Campaign], error) {
	params := persistence.ListCampaignsParams{TenantID: tenantID}
	if filter.Status != nil {
		status := string(*filter.Status)
		params.Status = &status
	}

	page, err := r.store.ListCampaigns(ctx, params, opts)
	if err != nil {
		return pagination.Page[service.Campaign]{}, err
	}

	items := make([]service.Campaign, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toCampaign(rec))
	}

	return pagination.Page[service.Campaign]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func (r *PostgresRepository) AttachChallenge(ctx context.Context, assoc service.CampaignChallenge) (service.CampaignChallenge, error) {
	rec, err := r.store.AttachChallenge(ctx, toAssociationRecord(assoc))
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrDuplicateAssociation):
			return service.CampaignChallenge{}, &service.ValidationError{Fields: service.FieldErrors{
				"challenge_id": {"challenge is already attached to this campaign"},
			}}
		case errors.Is(err, persistence.ErrAssociationNotFound):
			// Campaign or challenge deleted between the service checks and the
			// insert; the constraint is the authority.
			return service.CampaignChallenge{}, &service.ValidationError{Fields: service.FieldErrors{
				"challenge_id": {"campaign or challenge no longer exists"},
			}}
		default:
			return service.CampaignChallenge{}, err
		}
	}
	return toAssociation(rec), nil
}

func (r *PostgresRepository) DetachChallenge(ctx context.Context, campaignID, associationID uuid.UUID) error {
	if err := r.store.DetachChallenge(ctx, campaignID, associationID); err != nil {
		if errors.Is(err, persistence.ErrAssociationNotFound) {
			return service.ErrAssociationNotFound
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) ListChallenges(ctx context.Context, campaignID uuid.UUID, opts pagination.Options) (pagination.Page[service.CampaignChallenge], error) {
	page, err := r.store.ListChallenges(ctx, campaignID, opts)
	if err != nil {
		return pagination.Page[service.CampaignChallenge]{}, err
	}

	items := make([]service.CampaignChallenge, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toAssociation(rec))
	}

	return pagination.Page[service.CampaignChallenge]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func toRecord(c service.Campaign) persistence.CampaignRecord {
	return persistence.CampaignRecord{
		CampaignID:  c.ID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		Description: c.Description,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		Status:      string(c.Status),
	}
}

func toCampaign(rec persistence.CampaignRecord) service.Campaign {
	status, ok := service.ParseStatus(rec.Status)
	if !ok {
		status = service.StatusPaused
	}
	return service.Campaign{
		ID:          rec.CampaignID,
		TenantID:    rec.TenantID,
		Name:        rec.Name,
		Description: rec.Description,
		StartsAt:    rec.StartsAt,
		EndsAt:      rec.EndsAt,
		Status:      status,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func toAssociationRecord(assoc service.CampaignChallenge) persistence.CampaignChallengeRecord {
	return persistence.CampaignChallengeRecord{
		CampaignChallengeID: assoc.ID,
		CampaignID:          assoc.CampaignID,
		ChallengeID:         assoc.ChallengeID,
		Name:                assoc.Name,
		Description:         assoc.Description,
		Frequency:           assoc.Frequency,
		Points:              assoc.Points,
		Config:              assoc.Config,
	}
}

func toAssociation(rec persistence.CampaignChallengeRecord) service.CampaignChallenge {
	return service.CampaignChallenge{
		ID:          rec.CampaignChallengeID,
		CampaignID:  rec.CampaignID,
		ChallengeID: rec.ChallengeID,
		Name:        rec.Name,
		Description: rec.Description,
		Frequency:   rec.Frequency,
		Points:      rec.Points,
		Config:      rec.Config,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrCampaignNotFound) {
		return service.ErrNotFound
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
