package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/domains/campaigns/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development. It paginates with the same algorithm as the SQL
// store.
type MemoryRepository struct {
	mu           sync.RWMutex
	campaigns    map[uuid.UUID]service.Campaign
	associations map[uuid.UUID]service.CampaignChallenge
	base         time.Time
	seq          int64
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		campaigns:    make(map[uuid.UUID]service.Campaign),
		associations: make(map[uuid.UUID]service.CampaignChallenge),
		base:         time.Now().UTC(),
	}
}

// tick returns strictly increasing timestamps so cursor values never tie.
// Callers must hold the write lock.
func (r *MemoryRepository) tick() time.Time {
	r.seq++
	return r.base.Add(time.Duration(r.seq) * time.Microsecond)
}

func (r *MemoryRepository) Create(ctx context.Context, c service.Campaign) (service.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.tick()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.campaigns[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (service.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return service.Campaign{}, service.ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) Update(ctx context.Context, c service.Campaign) (service.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.campaigns[c.ID]
	if !ok || current.TenantID != c.TenantID {
		return service.Campaign{}, service.ErrNotFound
	}

	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = r.tick()
	r.campaigns[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return service.ErrNotFound
	}

	for assocID, assoc := range r.associations {
		if assoc.CampaignID == id {
			delete(r.associations, assocID)
		}
	}
	delete(r.campaigns, id)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, tenantID string, filter service.ListOptions, opts pagination.Options) (pagination.Page[service.Campaign], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if c.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		items = append(items, c)
	}

	return pagination.Slice(items, opts, campaignCursor(opts.Field)), nil
}

func (r *MemoryRepository) AttachChallenge(ctx context.Context, assoc service.CampaignChallenge) (service.CampaignChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.associations {
		if existing.CampaignID == assoc.CampaignID && existing.ChallengeID == assoc.ChallengeID {
			return service.CampaignChallenge{}, &service.ValidationError{Fields: service.FieldErrors{
				"challenge_id": {"challenge is already attached to this campaign"},
			}}
		}
	}

	now := r.tick()
	assoc.CreatedAt = now
	assoc.UpdatedAt = now
	r.associations[assoc.ID] = assoc
	return assoc, nil
}

func (r *MemoryRepository) DetachChallenge(ctx context.Context, campaignID, associationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	assoc, ok := r.associations[associationID]
	if !ok || assoc.CampaignID != campaignID {
		return service.ErrAssociationNotFound
	}

	delete(r.associations, associationID)
	return nil
}

func (r *MemoryRepository) ListChallenges(ctx context.Context, campaignID uuid.UUID, opts pagination.Options) (pagination.Page[service.CampaignChallenge], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.CampaignChallenge, 0)
	for _, assoc := range r.associations {
		if assoc.CampaignID == campaignID {
			items = append(items, assoc)
		}
	}

	return pagination.Slice(items, opts, associationCursor(opts.Field)), nil
}

func campaignCursor(field pagination.Field) func(service.Campaign) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(c service.Campaign) time.Time { return c.UpdatedAt }
	}
	return func(c service.Campaign) time.Time { return c.CreatedAt }
}

func associationCursor(field pagination.Field) func(service.CampaignChallenge) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(a service.CampaignChallenge) time.Time { return a.UpdatedAt }
	}
	return func(a service.CampaignChallenge) time.Time { return a.CreatedAt }
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
