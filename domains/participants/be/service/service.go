package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError captures input validation problems surfaced by the service.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain-level error sentinel values.
//
// ErrTenantMismatch is deliberately distinct from ErrNotFound: it is returned
// only on association attempts, where the caller holds both ids and needs to
// know the pairing failed because the resources do not resolve consistently
// under the calling tenant. Direct id lookups never return it.
var (
	ErrNotFound            = errors.New("participant not found")
	ErrTenantMismatch      = errors.New("resources do not resolve under the same tenant")
	ErrNotInCampaign       = errors.New("participant is not a member of the challenge's campaign")
	ErrAssociationNotFound = errors.New("association not found")
)

// Status is the participant lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusIneligible Status = "ineligible"
)

// ParseStatus maps a string onto a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusIneligible:
		return Status(s), true
	default:
		return "", false
	}
}

// Participant represents a reward program member owned by a tenant.
type Participant struct {
	ID        uuid.UUID
	TenantID  string
	FullName  string
	Nickname  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership associates a participant with a campaign.
type Membership struct {
	ID            uuid.UUID
	CampaignID    uuid.UUID
	ParticipantID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Enrollment associates a participant with a challenge, through the campaign
// that qualified the participant for it.
type Enrollment struct {
	ID            uuid.UUID
	ParticipantID uuid.UUID
	ChallengeID   uuid.UUID
	CampaignID    uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateInput defines the payload required to create a participant.
type CreateInput struct {
	FullName string
	Nickname string
	Status   *Status
}

// UpdateInput defines the fields that can be modified on an existing
// participant. Nil means "leave unchanged".
type UpdateInput struct {
	FullName *string
	Nickname *string
	Status   *Status
}

// ListOptions captures participant list filters. Search matches the nickname
// case-insensitively as a substring.
type ListOptions struct {
	Status *Status
	Search *string
}

// Repository abstracts participant persistence. Participant rows are
// tenant-scoped; association rows are addressed by their id pairs.
type Repository interface {
	Create(ctx context.Context, p Participant) (Participant, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (Participant, error)
	Update(ctx context.Context, p Participant) (Participant, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	List(ctx context.Context, tenantID string, filter ListOptions, opts pagination.Options) (pagination.Page[Participant], error)

	JoinCampaign(ctx context.Context, m Membership) (Membership, error)
	LeaveCampaign(ctx context.Context, campaignID, participantID uuid.UUID) error
	MembershipExists(ctx context.Context, campaignID, participantID uuid.UUID) (bool, error)
	ListMemberships(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[Membership], error)

	JoinChallenge(ctx context.Context, e Enrollment) (Enrollment, error)
	LeaveChallenge(ctx context.Context, participantID, challengeID uuid.UUID) error
	ListEnrollments(ctx context.Context, participantID uuid.UUID, opts pagination.Options) (pagination.Page[Enrollment], error)
}

// CampaignResolver resolves campaigns for association checks. Implemented by
// the campaigns domain and wired in at startup.
type CampaignResolver interface {
	CampaignOwned(ctx context.Context, tenantID string, campaignID uuid.UUID) (bool, error)
	CampaignsWithChallenge(ctx context.Context, tenantID string, challengeID uuid.UUID) ([]uuid.UUID, error)
}

// Service exposes the participants domain operations.
type Service interface {
	Create(ctx context.Context, tenantID string, input CreateInput) (Participant, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (Participant, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, input UpdateInput) (Participant, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	List(ctx context.Context, tenantID string, filter ListOptions, opts pagination.Options) (pagination.Page[Participant], error)

	JoinCampaign(ctx context.Context, tenantID string, participantID, campaignID uuid.UUID) (Membership, error)
	LeaveCampaign(ctx context.Context, tenantID string, participantID, campaignID uuid.UUID) error
	ListMemberships(ctx context.Context, tenantID string, participantID uuid.UUID, opts pagination.Options) (pagination.Page[Membership], error)

	JoinChallenge(ctx context.Context, tenantID string, participantID, challengeID uuid.UUID) (Enrollment, error)
	LeaveChallenge(ctx context.Context, tenantID string, participantID, challengeID uuid.UUID) error
	ListEnrollments(ctx context.Context, tenantID string, participantID uuid.UUID, opts pagination.Options) (pagination.Page[Enrollment], error)
}

type service struct {
	repo      Repository
	campaigns CampaignResolver
}

// New builds a participants Service backed by the provided repository.
func New(repo Repository, campaigns CampaignResolver) Service {
	if repo == nil {
		panic("participants repo is required")
	}
	if campaigns == nil {
		panic("campaign resolver is required")
	}
	return &service{repo: repo, campaigns: campaigns}
}

func (s *service) Create(ctx context.Context, tenantID string, input CreateInput) (Participant, error) {
	errs := FieldErrors{}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		errs.add("full_name", "full_name is required")
	}

	nickname := strings.TrimSpace(input.Nickname)
	if nickname == "" {
		errs.add("nickname", "nickname is required")
	} else if len(nickname) < 3 {
		errs.add("nickname", "nickname must be at least 3 characters")
	}

	status := StatusActive
	if input.Status != nil {
		status = *input.Status
		if _, ok := ParseStatus(string(status)); !ok {
			errs.add("status", "status must be one of: active, inactive, ineligible")
		}
	}

	if len(errs) > 0 {
		return Participant{}, &ValidationError{Fields: errs}
	}

	participant := Participant{
		ID:       uuid.New(),
		TenantID: tenantID,
		FullName: fullName,
		Nickname: nickname,
		Status:   status,
	}

	return s.repo.Create(ctx, participant)
}

func (s *service) Get(ctx context.Context, tenantID string, id uuid.UUID) (Participant, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *service) Update(ctx context.Context, tenantID string, id uuid.UUID, input UpdateInput) (Participant, error) {
	if input.FullName == nil && input.Nickname == nil && input.Status == nil {
		return Participant{}, &ValidationError{Fields: FieldErrors{
			"body": {"at least one field must be provided"},
		}}
	}

	current, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Participant{}, err
	}

	errs := FieldErrors{}
	next := current

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			errs.add("full_name", "full_name is required")
		}
		next.FullName = fullName
	}
	if input.Nickname != nil {
		nickname := strings.TrimSpace(*input.Nickname)
		if nickname == "" {
			errs.add("nickname", "nickname is required")
		} else if len(nickname) < 3 {
			errs.add("nickname", "nickname must be at least 3 characters")
		}
		next.Nickname = nickname
	}
	if input.Status != nil {
		if _, ok := ParseStatus(string(*input.Status)); !ok {
			errs.add("status", "status must be one of: active, inactive, ineligible")
		}
		next.Status = *input.Status
	}

	if len(errs) > 0 {
		return Participant{}, &ValidationError{Fields: errs}
	}

	return s.repo.Update(ctx, next)
}

func (s *service) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, tenantID string, filter ListOptions, opts pagination.Options) (pagination.Page[Participant], error) {
	if filter.Status != nil {
		if _, ok := ParseStatus(string(*filter.Status)); !ok {
			return pagination.Page[Participant]{}, &ValidationError{Fields: FieldErrors{
				"status": {"status must be one of: active, inactive, ineligible"},
			}}
		}
	}
	return s.repo.List(ctx, tenantID, filter, opts)
}

// JoinCampaign pairs a participant with a campaign. Both resources must
// resolve under the calling tenant; any failure to do so, absence included,
// reports a tenant mismatch rather than not found, because the caller holds
// both ids and needs to know why the pairing failed.
func (s *service) JoinCampaign(ctx context.Context, tenantID string, participantID, campaignID uuid.UUID) (Membership, error) {
	if _, err := s.repo.Get(ctx, tenantID, participantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Membership{}, ErrTenantMismatch
		}
		return Membership{}, err
	}

	owned, err := s.campaigns.CampaignOwned(ctx, tenantID, campaignID)
	if err != nil {
		return Membership{}, err
	}
	if !owned {
		return Membership{}, ErrTenantMismatch
	}

	return s.repo.JoinCampaign(ctx, Membership{
		ID:            uuid.New(),
		CampaignID:    campaignID,
		ParticipantID: participantID,
	})
}

func (s *service) LeaveCampaign(ctx context.Context, tenantID string, participantID, campaignID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, tenantID, participantID); err != nil {
		return err
	}
	return s.repo.LeaveCampaign(ctx, campaignID, participantID)
}

func (s *service) ListMemberships(ctx context.Context, tenantID string, participantID uuid.UUID, opts pagination.Options) (pagination.Page[Membership], error) {
	if _, err := s.repo.Get(ctx, tenantID, participantID); err != nil {
		return pagination.Page[Membership]{}, err
	}
	return s.repo.ListMemberships(ctx, participantID, opts)
}

// JoinChallenge enrolls a participant in a challenge. The challenge must be
// attached to at least one of the tenant's campaigns, and the participant
// must already be a member of one of those campaigns; the enrollment records
// the campaign that qualified it.
func (s *service) JoinChallenge(ctx context.Context, tenantID string, participantID, challengeID uuid.UUID) (Enrollment, error) {
	if _, err := s.repo.Get(ctx, tenantID, participantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Enrollment{}, ErrTenantMismatch
		}
		return Enrollment{}, err
	}

	campaignIDs, err := s.campaigns.CampaignsWithChallenge(ctx, tenantID, challengeID)
	if err != nil {
		return Enrollment{}, err
	}
	if len(campaignIDs) == 0 {
		// Challenge absent, or attached to no campaign of this tenant; either
		// way it does not resolve under the calling tenant.
		return Enrollment{}, ErrTenantMismatch
	}

	var qualifying *uuid.UUID
	for _, campaignID := range campaignIDs {
		member, err := s.repo.MembershipExists(ctx, campaignID, participantID)
		if err != nil {
			return Enrollment{}, err
		}
		if member {
			id := campaignID
			qualifying = &id
			break
		}
	}
	if qualifying == nil {
		return Enrollment{}, ErrNotInCampaign
	}

	return s.repo.JoinChallenge(ctx, Enrollment{
		ID:            uuid.New(),
		ParticipantID: participantID,
		ChallengeID:   challengeID,
		CampaignID:    *qualifying,
	})
}

func (s *service) LeaveChallenge(ctx context.Context, tenantID string, participantID, challengeID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, tenantID, participantID); err != nil {
		return err
	}
	return s.repo.LeaveChallenge(ctx, participantID, challengeID)
}

func (s *service) ListEnrollments(ctx context.Context, tenantID string, participantID uuid.UUID, opts pagination.Options) (pagination.Page[Enrollment], error) {
	if _, err := s.repo.Get(ctx, tenantID, participantID); err != nil {
		return pagination.Page[Enrollment]{}, err
	}
	return s.repo.ListEnrollments(ctx, participantID, opts)
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}
