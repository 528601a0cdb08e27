package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/domains/participants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development. It enforces the same uniqueness constraints as the
// SQL store and paginates with the same algorithm.
type MemoryRepository struct {
	mu           sync.RWMutex
	participants map[uuid.UUID]service.Participant
	memberships  map[uuid.UUID]service.Membership
	enrollments  map[uuid.UUID]service.Enrollment
	base         time.Time
	seq          int64
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		participants: make(map[uuid.UUID]service.Participant),
		memberships:  make(map[uuid.UUID]service.Membership),
		enrollments:  make(map[uuid.UUID]service.Enrollment),
		base:         time.Now().UTC(),
	}
}

// tick returns strictly increasing timestamps so cursor values never tie.
// Callers must hold the write lock.
func (r *MemoryRepository) tick() time.Time {
	r.seq++
	return r.base.Add(time.Duration(r.seq) * time.Microsecond)
}

func (r *MemoryRepository) Create(ctx context.Context, p service.Participant) (service.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.participants {
		if existing.TenantID == p.TenantID && existing.Nickname == p.Nickname {
			return service.Participant{}, &service.ValidationError{Fields: service.FieldErrors{
				"nickname": {"nickname is already taken"},
			}}
		}
	}

	now := r.tick()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.participants[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (service.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok || p.TenantID != tenantID {
		return service.Participant{}, service.ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) Update(ctx context.Context, p service.Participant) (service.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.participants[p.ID]
	if !ok || current.TenantID != p.TenantID {
		return service.Participant{}, service.ErrNotFound
	}

	for id, existing := range r.participants {
		if id != p.ID && existing.TenantID == p.TenantID && existing.Nickname == p.Nickname {
			return service.Participant{}, &service.ValidationError{Fields: service.FieldErrors{
				"nickname": {"nickname is already taken"},
			}}
		}
	}

	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = r.tick()
	r.participants[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok || p.TenantID != tenantID {
		return service.ErrNotFound
	}

	for enrollmentID, e := range r.enrollments {
		if e.ParticipantID == id {
			delete(r.enrollments, enrollmentID)
		}
	}
	for membershipID, m := range r.memberships {
		if m.ParticipantID == id {
			delete(r.memberships, membershipID)
		}
	}
	delete(r.participants, id)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, tenantID string, filter service.ListOptions, opts pagination.Options) (pagination.Page[service.Participant], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Search != nil && !strings.Contains(
			strings.ToLower(p.Nickname), strings.ToLower(*filter.Search)) {
			continue
		}
		items = append(items, p)
	}

	return pagination.Slice(items, opts, participantCursor(opts.Field)), nil
}

func (r *MemoryRepository) JoinCampaign(ctx context.Context, m service.Membership) (service.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.memberships {
		if existing.CampaignID == m.CampaignID && existing.ParticipantID == m.ParticipantID {
			return service.Membership{}, &service.ValidationError{Fields: service.FieldErrors{
				"campaign_id": {"participant is already a member of this campaign"},
			}}
		}
	}

	now := r.tick()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.memberships[m.ID] = m
	return m, nil
}

func (r *MemoryRepository) LeaveCampaign(ctx context.Context, campaignID, participantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.memberships {
		if m.CampaignID == campaignID && m.ParticipantID == participantID {
			delete(r.memberships, id)
			return nil
		}
	}
	return service.ErrAssociationNotFound
}

func (r *MemoryRepository) MembershipExists(ctx context.Context, campaignID, participantID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.memberships {
		if m.CampaignID == campaignID && m.ParticipantID == participantID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) ListMemberships(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[service.Membership], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Membership, 0)
	for _, m := range r.memberships {
		if m.ParticipantID == participantID {
			items = append(items, m)
		}
	}

	return pagination.Slice(items, opts, membershipCursor(opts.Field)), nil
}

func (r *MemoryRepository) JoinChallenge(ctx context.Context, e service.Enrollment) (service.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.enrollments {
		if existing.ParticipantID == e.ParticipantID && existing.ChallengeID == e.ChallengeID {
			return service.Enrollment{}, &service.ValidationError{Fields: service.FieldErrors{
				"challenge_id": {"participant is already enrolled in this challenge"},
			}}
		}
	}

	now := r.tick()
	e.CreatedAt = now
	e.UpdatedAt = now
	r.enrollments[e.ID] = e
	return e, nil
}

func (r *MemoryRepository) LeaveChallenge(ctx context.Context, participantID, challengeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.enrollments {
		if e.ParticipantID == participantID && e.ChallengeID == challengeID {
			delete(r.enrollments, id)
			return nil
		}
	}
	return service.ErrAssociationNotFound
}

func (r *MemoryRepository) ListEnrollments(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[service.Enrollment], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Enrollment, 0)
	for _, e := range r.enrollments {
		if e.ParticipantID == participantID {
			items = append(items, e)
		}
	}

	return pagination.Slice(items, opts, enrollmentCursor(opts.Field)), nil
}

func participantCursor(field pagination.Field) func(service.Participant) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(p service.Participant) time.Time { return p.UpdatedAt }
	}
	return func(p service.Participant) time.Time { return p.CreatedAt }
}

func membershipCursor(field pagination.Field) func(service.Membership) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(m service.Membership) time.Time { return m.UpdatedAt }
	}
	return func(m service.Membership) time.Time { return m.CreatedAt }
}

func enrollmentCursor(field pagination.Field) func(service.Enrollment) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(e service.Enrollment) time.Time { return e.UpdatedAt }
	}
	return func(e service.Enrollment) time.Time { return e.CreatedAt }
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
