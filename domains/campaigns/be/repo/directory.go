package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/platform/go/persistence"
)

// Directory answers campaign resolution questions for other domains without
// exposing the full repository surface.
type Directory struct {
	store *persistence.CampaignStore
}

// NewDirectory constructs a Directory backed by CampaignStore.
func NewDirectory(store *persistence.CampaignStore) *Directory {
	if store == nil {
		panic("campaign store is required")
	}
	return &Directory{store: store}
}

// CampaignOwned reports whether the campaign exists under the tenant.
func (d *Directory) CampaignOwned(ctx context.Context, tenantID string, campaignID uuid.UUID) (bool, error) {
	_, err := d.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		if errors.Is(err, persistence.ErrCampaignNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CampaignsWithChallenge returns the tenant's campaigns carrying the
// challenge.
func (d *Directory) CampaignsWithChallenge(ctx context.Context, tenantID string, challengeID uuid.UUID) ([]uuid.UUID, error) {
	return d.store.CampaignsWithChallenge(ctx, tenantID, challengeID)
}
