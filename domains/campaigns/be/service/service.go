package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
	"github.com/loyaltycore/campaigns-api/platform/go/validation"
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
var (
	ErrNotFound            = errors.New("campaign not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrAssociationNotFound = errors.New("campaign challenge association not found")
)

// Status is the campaign lifecycle state.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// ParseStatus maps a string onto a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusPaused:
		return Status(s), true
	default:
		return "", false
	}
}

// Common frequency tokens. The field is free form so challenge types can
// carry their own schedule expressions; these are just the usual cadences.
const (
	FrequencyOnce    = "once"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Campaign represents a reward campaign owned by a tenant.
type Campaign struct {
	ID          uuid.UUID
	TenantID    string
	Name        string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CampaignChallenge is the association attaching a global challenge to a
// campaign, carrying the campaign-local scoring configuration.
type CampaignChallenge struct {
	ID          uuid.UUID
	CampaignID  uuid.UUID
	ChallengeID uuid.UUID
	Name        string
	Description *string
	Frequency   string
	Points      int
	Config      json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput defines the payload required to create a campaign.
type CreateInput struct {
	Name        string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Status      *Status
}

// UpdateInput defines the fields that can be modified on an existing
// campaign. Nil means "leave unchanged".
type UpdateInput struct {
	Name        *string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Status      *Status
}

// AttachChallengeInput defines the payload attaching a challenge to a
// campaign.
type AttachChallengeInput struct {
	ChallengeID uuid.UUID
	Name        string
	Description *string
	Frequency   string
	Points      int
	Config      json.RawMessage
}

// ListOptions captures campaign list filters.
type ListOptions struct {
	Status *Status
}

// Repository abstracts campaign persistence. Every method that touches a
// campaign row is tenant-scoped; a row owned by another tenant behaves like
// an absent one.
type Repository interface {
	Create(ctx context.Context, c Campaign) (Campaign, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (Campaign, error)
	Update(ctx context.Context, c Campaign) (Campaign, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	List(ctx context.Context, tenantID string, filter ListOptions, opts pagination.Options) (pagination.Page[Campaign], error)
	AttachChallenge(ctx context.Context, assoc CampaignChallenge) (CampaignChallenge, error)
	DetachChallenge(ctx context.Context, campaignID, associationID uuid.UUID) error
	ListChallenges(ctx context.Context, campaignID uuid.UUID, opts pagination.Options) (pagination.Page[CampaignChallenge], error)
}

// ChallengeDirectory resolves global challenge ids. Implemented by the
// challenges domain and wired in at startup.
type ChallengeDirectory interface {
	ChallengeExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service exposes the campaigns domain operations.
type Service interface {
	Create(ctx context.Context, tenantID string, input CreateInput) (Campaign, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (Campaign, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, input UpdateInput) (Campaign, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	List(ctx context.Context, tenantID string, filter ListOptions, opts pagination.Options) (pagination.Page[Campaign], error)
	AttachChallenge(ctx context.Context, tenantID string, campaignID uuid.UUID, input AttachChallengeInput) (CampaignChallenge, error)
	DetachChallenge(ctx context.Context, tenantID string, campaignID, associationID uuid.UUID) error
	ListChallenges(ctx context.Context, tenantID string, campaignID uuid.UUID, opts pagination.Options) (pagination.Page[CampaignChallenge], error)
}

// configSchema constrains the campaign-local challenge configuration to a
// JSON object; the keys inside are challenge-type specific.
const configSchema = `{"type": "object"}`

type service struct {
	repo       Repository
	challenges ChallengeDirectory
	validator  *validation.SchemaValidator
	now        func() time.Time
}

// New builds a campaigns Service backed by the provided repository.
func New(repo Repository, challenges ChallengeDirectory) Service {
	if repo == nil {
		panic("campaigns repo is required")
	}
	if challenges == nil {
		panic("challenge directory is required")
	}
	return &service{
		repo:       repo,
		challenges: challenges,
		validator:  validation.NewSchemaValidator(),
		now:        time.Now,
	}
}

func (s *service) Create(ctx context.Context, tenantID string, input CreateInput) (Campaign, error) {
	errs := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	validateName(errs, "name", name)

	status := StatusActive
	if input.Status != nil {
		status = *input.Status
		if _, ok := ParseStatus(string(status)); !ok {
			errs.add("status", "status must be one of: active, paused")
		}
	}

	validateDateOrder(errs, input.StartsAt, input.EndsAt)

	if len(errs) > 0 {
		return Campaign{}, &ValidationError{Fields: errs}
	}

	campaign := Campaign{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		Description: input.Description,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Status:      status,
	}

	return s.repo.Create(ctx, campaign)
}

func (s *service) Get(ctx context.Context, tenantID string, id uuid.UUID) (Campaign, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *service) Update(ctx context.Context, tenantID string, id uuid.UUID, input UpdateInput) (Campaign, error) {
	if input.Name == nil && input.Description == nil && input.StartsAt == nil &&
		input.EndsAt == nil && input.Status == nil {
		return Campaign{}, &ValidationError{Fields: FieldErrors{
			"body": {"at least one field must be provided"},
		}}
	}

	current, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Campaign{}, err
	}

	errs := FieldErrors{}
	next := current

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		validateName(errs, "name", name)
		next.Name = name
	}
	if input.Description != nil {
		next.Description = input.Description
	}
	if input.StartsAt != nil {
		next.StartsAt = input.StartsAt
	}
	if input.EndsAt != nil {
		next.EndsAt = input.EndsAt
	}
	if input.Status != nil {
		if _, ok := ParseStatus(string(*input.Status)); !ok {
			errs.add("status", "status must be one of: active, paused")
		}
		next.Status = *input.Status
	}

	// The date-order invariant holds over the merged state, so a patch moving
	// only one endpoint cannot invert the window.
	validateDateOrder(errs, next.StartsAt, next.EndsAt)

	if len(errs) > 0 {
		return Campaign{}, &ValidationError{Fields: errs}
	}

	return s.repo.Update(ctx, next)
}

func (s *service) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, tenantID string, filter ListOptions, opts pagination.Options) (pagination.Page[Campaign], error) {
	if filter.Status != nil {
		if _, ok := ParseStatus(string(*filter.Status)); !ok {
			return pagination.Page[Campaign]{}, &ValidationError{Fields: FieldErrors{
				"status": {"status must be one of: active, paused"},
			}}
		}
	}
	return s.repo.List(ctx, tenantID, filter, opts)
}

func (s *service) AttachChallenge(ctx context.Context, tenantID string, campaignID uuid.UUID, input AttachChallengeInput) (CampaignChallenge, error) {
	if _, err := s.repo.Get(ctx, tenantID, campaignID); err != nil {
		return CampaignChallenge{}, err
	}

	exists, err := s.challenges.ChallengeExists(ctx, input.ChallengeID)
	if err != nil {
		return CampaignChallenge{}, err
	}
	if !exists {
		return CampaignChallenge{}, ErrChallengeNotFound
	}

	errs := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	validateName(errs, "name", name)

	frequency := strings.TrimSpace(input.Frequency)
	if frequency == "" {
		errs.add("frequency", "frequency is required")
	}
	if len(input.Config) > 0 {
		if err := s.validator.Validate("campaigns/challenge-config", []byte(configSchema), input.Config); err != nil {
			errs.add("config", "config must be a JSON object")
		}
	}

	if len(errs) > 0 {
		return CampaignChallenge{}, &ValidationError{Fields: errs}
	}

	assoc := CampaignChallenge{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		ChallengeID: input.ChallengeID,
		Name:        name,
		Description: input.Description,
		Frequency:   frequency,
		Points:      input.Points,
		Config:      input.Config,
	}

	return s.repo.AttachChallenge(ctx, assoc)
}

func (s *service) DetachChallenge(ctx context.Context, tenantID string, campaignID, associationID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, tenantID, campaignID); err != nil {
		return err
	}
	return s.repo.DetachChallenge(ctx, campaignID, associationID)
}

func (s *service) ListChallenges(ctx context.Context, tenantID string, campaignID uuid.UUID, opts pagination.Options) (pagination.Page[CampaignChallenge], error) {
	if _, err := s.repo.Get(ctx, tenantID, campaignID); err != nil {
		return pagination.Page[CampaignChallenge]{}, err
	}
	return s.repo.ListChallenges(ctx, campaignID, opts)
}

func validateName(errs FieldErrors, field, name string) {
	if name == "" {
		errs.add(field, field+" is required")
		return
	}
	if len(name) < 3 {
		errs.add(field, field+" must be at least 3 characters")
	}
}

func validateDateOrder(errs FieldErrors, startsAt, endsAt *time.Time) {
	if startsAt != nil && endsAt != nil && !startsAt.Before(*endsAt) {
		errs.add("ends_at", "ends_at must be after starts_at")
	}
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}
