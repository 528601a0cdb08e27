package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/platform/go/events"
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
	ErrNotFound        = errors.New("challenge not found")
	ErrHasAssociations = errors.New("challenge has campaign associations")
)

// Challenge is a global catalog entry shared across tenants. Tenants attach
// challenges to their campaigns; they never own or mutate the catalog entry.
type Challenge struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Metadata    json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput defines the payload required to create a challenge.
type CreateInput struct {
	Name        string
	Description *string
	Metadata    json.RawMessage
}

// UpdateInput defines the fields that can be modified on an existing
// challenge. Nil means "leave unchanged".
type UpdateInput struct {
	Name        *string
	Description *string
	Metadata    json.RawMessage
}

// Repository abstracts challenge persistence.
type Repository interface {
	Create(ctx context.Context, c Challenge) (Challenge, error)
	Get(ctx context.Context, id uuid.UUID) (Challenge, error)
	Update(ctx context.Context, c Challenge) (Challenge, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts pagination.Options) (pagination.Page[Challenge], error)
}

// Publisher pushes ingestion events for freshly created challenges.
type Publisher interface {
	PublishChallengeIngested(ctx context.Context, msg events.Message) error
}

// Service exposes the challenges domain operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Challenge, error)
	Get(ctx context.Context, id uuid.UUID) (Challenge, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Challenge, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts pagination.Options) (pagination.Page[Challenge], error)
	ChallengeExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// metadataSchema constrains challenge metadata to a JSON object; the keys
// inside are challenge-type specific.
const metadataSchema = `{"type": "object"}`

type service struct {
	repo      Repository
	publisher Publisher
	validator *validation.SchemaValidator
	logger    *zap.Logger
}

// New builds a challenges Service backed by the provided repository. The
// publisher may be nil when no broker is configured.
func New(repo Repository, publisher Publisher, logger *zap.Logger) Service {
	if repo == nil {
		panic("challenges repo is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		validator: validation.NewSchemaValidator(),
		logger:    logger,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (Challenge, error) {
	errs := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		errs.add("name", "name is required")
	} else if len(name) < 3 {
		errs.add("name", "name must be at least 3 characters")
	}

	if len(input.Metadata) > 0 {
		if err := s.validator.Validate("challenges/metadata", []byte(metadataSchema), input.Metadata); err != nil {
			errs.add("metadata", "metadata must be a JSON object")
		}
	}

	if len(errs) > 0 {
		return Challenge{}, &ValidationError{Fields: errs}
	}

	challenge := Challenge{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		Metadata:    input.Metadata,
	}

	created, err := s.repo.Create(ctx, challenge)
	if err != nil {
		return Challenge{}, err
	}

	s.publishIngested(ctx, created)

	return created, nil
}

// publishIngested announces the new catalog entry downstream. Publishing is
// best effort: the challenge row is already committed, so a broker outage
// must not fail the request.
func (s *service) publishIngested(ctx context.Context, challenge Challenge) {
	if s.publisher == nil {
		return
	}

	var payload map[string]interface{}
	if len(challenge.Metadata) > 0 {
		if err := json.Unmarshal(challenge.Metadata, &payload); err != nil {
			payload = nil
		}
	}

	msg := events.NewChallengeIngested(challenge.ID, payload)
	if err := s.publisher.PublishChallengeIngested(ctx, msg); err != nil {
		s.logger.Warn("failed to publish challenge ingestion event",
			zap.String("challenge_id", challenge.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Challenge, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Challenge, error) {
	if input.Name == nil && input.Description == nil && len(input.Metadata) == 0 {
		return Challenge{}, &ValidationError{Fields: FieldErrors{
			"body": {"at least one field must be provided"},
		}}
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}

	errs := FieldErrors{}
	next := current

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			errs.add("name", "name is required")
		} else if len(name) < 3 {
			errs.add("name", "name must be at least 3 characters")
		}
		next.Name = name
	}
	if input.Description != nil {
		next.Description = input.Description
	}
	if len(input.Metadata) > 0 {
		if err := s.validator.Validate("challenges/metadata", []byte(metadataSchema), input.Metadata); err != nil {
			errs.add("metadata", "metadata must be a JSON object")
		}
		next.Metadata = input.Metadata
	}

	if len(errs) > 0 {
		return Challenge{}, &ValidationError{Fields: errs}
	}

	return s.repo.Update(ctx, next)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) List(ctx context.Context, opts pagination.Options) (pagination.Page[Challenge], error) {
	return s.repo.List(ctx, opts)
}

// ChallengeExists reports whether the catalog entry exists. Other domains use
// it to validate association targets.
func (s *service) ChallengeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f FieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = []string{message}
		return
	}
	f[field] = append(f[field], message)
}
