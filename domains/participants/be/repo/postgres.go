package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/domains/participants/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/persistence"
)

// PostgresRepository implements the participant repository using the shared
// persistence layer.
type PostgresRepository struct {
	store *persistence.ParticipantStore
}

// NewPostgresRepository constructs a repository backed by ParticipantStore.
func NewPostgresRepository(store *persistence.ParticipantStore) *PostgresRepository {
	if store == nil {
		panic("participant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, p service.Participant) (service.Participant, error) {
	rec, err := r.store.CreateParticipant(ctx, toRecord(p))
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrNicknameTaken):
			return service.Participant{}, &service.ValidationError{Fields: service.FieldErrors{
				"nickname": {"nickname is already taken"},
			}}
		case errors.Is(err, persistence.ErrTenantReferenceMissing):
			return service.Participant{}, &service.ValidationError{Fields: service.FieldErrors{
				"tenant_id": {"owning tenant no longer exists"},
			}}
		default:
			return service.Participant{}, err
		}
	}
	return toParticipant(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (service.Participant, error) {
	rec, err := r.store.GetParticipant(ctx, tenantID, id)
	if err != nil {
		return service.Participant{}, mapNotFound(err)
	}
	return toParticipant(rec), nil
}

func (r *PostgresRepository) Update(ctx context.Context, p service.Participant) (service.Participant, error) {
	rec, err := r.store.UpdateParticipant(ctx, toRecord(p))
	if err != nil {
		if errors.Is(err, persistence.ErrNicknameTaken) {
			return service.Participant{}, &service.ValidationError{Fields: service.FieldErrors{
				"nickname": {"nickname is already taken"},
			}}
		}
		return service.Participant{}, mapNotFound(err)
	}
	return toParticipant(rec), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	if err := r.store.DeleteParticipant(ctx, tenantID, id); err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, tenantID string, filter service.ListOptions, opts pagination.Options) (pagination.Page[service.Participant], error) {
	params := persistence.ListParticipantsParams{TenantID: tenantID, Search: filter.Search}
	if filter.Status != nil {
		status := string(*filter.Status)
		params.Status = &status
	}

	page, err := r.store.ListParticipants(ctx, params, opts)
	if err != nil {
		return pagination.Page[service.Participant]{}, err
	}

	items := make([]service.Participant, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toParticipant(rec))
	}

	return pagination.Page[service.Participant]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func (r *PostgresRepository) JoinCampaign(ctx context.Context, m service.Membership) (service.Membership, error) {
	rec, err := r.store.JoinCampaign(ctx, persistence.CampaignParticipantRecord{
		CampaignParticipantID: m.ID,
		CampaignID:            m.CampaignID,
		ParticipantID:         m.ParticipantID,
	})
	if err != nil {
		return service.Membership{}, mapAssociationError(err, "campaign_id", "participant is already a member of this campaign")
	}
	return toMembership(rec), nil
}

func (r *PostgresRepository) LeaveCampaign(ctx context.Context, campaignID, participantID uuid.UUID) error {
	if err := r.store.LeaveCampaign(ctx, campaignID, participantID); err != nil {
		if errors.Is(err, persistence.ErrAssociationNotFound) {
			return service.ErrAssociationNotFound
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) MembershipExists(ctx context.Context, campaignID, participantID uuid.UUID) (bool, error) {
	return r.store.MembershipExists(ctx, campaignID, participantID)
}

func (r *PostgresRepository) ListMemberships(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[service.Membership], error) {
	page, err := r.store.ListMemberships(ctx, participantID, opts)
	if err != nil {
		return pagination.Page[service.Membership]{}, err
	}

	items := make([]service.Membership, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toMembership(rec))
	}

	return pagination.Page[service.Membership]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func (r *PostgresRepository) JoinChallenge(ctx context.Context, e service.Enrollment) (service.Enrollment, error) {
	rec, err := r.store.JoinChallenge(ctx, persistence.ParticipantChallengeRecord{
		ParticipantChallengeID: e.ID,
		ParticipantID:          e.ParticipantID,
		ChallengeID:            e.ChallengeID,
		CampaignID:             e.CampaignID,
	})
	if err != nil {
		return service.Enrollment{}, mapAssociationError(err, "challenge_id", "participant is already enrolled in this challenge")
	}
	return toEnrollment(rec), nil
}

func (r *PostgresRepository) LeaveChallenge(ctx context.Context, participantID, challengeID uuid.UUID) error {
	if err := r.store.LeaveChallenge(ctx, participantID, challengeID); err != nil {
		if errors.Is(err, persistence.ErrAssociationNotFound) {
			return service.ErrAssociationNotFound
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) ListEnrollments(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[service.Enrollment], error) {
	page, err := r.store.ListEnrollments(ctx, participantID, opts)
	if err != nil {
		return pagination.Page[service.Enrollment]{}, err
	}

	items := make([]service.Enrollment, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toEnrollment(rec))
	}

	return pagination.Page[service.Enrollment]{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

func toRecord(p service.Participant) persistence.ParticipantRecord {
	return persistence.ParticipantRecord{
		ParticipantID: p.ID,
		TenantID:      p.TenantID,
		FullName:      p.FullName,
		Nickname:      p.Nickname,
		Status:        string(p.Status),
	}
}

func toParticipant(rec persistence.ParticipantRecord) service.Participant {
	status, ok := service.ParseStatus(rec.Status)
	if !ok {
		status = service.StatusInactive
	}
	return service.Participant{
		ID:        rec.ParticipantID,
		TenantID:  rec.TenantID,
		FullName:  rec.FullName,
		Nickname:  rec.Nickname,
		Status:    status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toMembership(rec persistence.CampaignParticipantRecord) service.Membership {
	return service.Membership{
		ID:            rec.CampaignParticipantID,
		CampaignID:    rec.CampaignID,
		ParticipantID: rec.ParticipantID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toEnrollment(rec persistence.ParticipantChallengeRecord) service.Enrollment {
	return service.Enrollment{
		ID:            rec.ParticipantChallengeID,
		ParticipantID: rec.ParticipantID,
		ChallengeID:   rec.ChallengeID,
		CampaignID:    rec.CampaignID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrParticipantNotFound) {
		return service.ErrNotFound
	}
	return err
}

// mapAssociationError translates the storage constraint outcomes of an
// association insert. A duplicate pair loses the uniqueness race and gets a
// validation error; a foreign key failure means a referenced row vanished
// between the service checks and the insert.
func mapAssociationError(err error, field, duplicateMessage string) error {
	switch {
	case errors.Is(err, persistence.ErrDuplicateAssociation):
		return &service.ValidationError{Fields: service.FieldErrors{
			field: {duplicateMessage},
		}}
	case errors.Is(err, persistence.ErrAssociationNotFound):
		return &service.ValidationError{Fields: service.FieldErrors{
			field: {"referenced resource no longer exists"},
		}}
	default:
		return err
	}
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
