package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loyaltycore/campaigns-api/domains/challenges/be/repo"
	"github.com/loyaltycore/campaigns-api/domains/challenges/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/events"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

type capturePublisher struct {
	published []events.Message
	err       error
}

func (c *capturePublisher) PublishChallengeIngested(ctx context.Context, msg events.Message) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, msg)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateChallenge(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	created, err := svc.Create(context.Background(), service.CreateInput{
		Name:        "Daily Login",
		Description: strPtr("log in once a day"),
		Metadata:    json.RawMessage(`{"category": "engagement"}`),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestCreateChallengeValidation(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)

	_, err := svc.Create(context.Background(), service.CreateInput{Name: "  "})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")

	_, err = svc.Create(context.Background(), service.CreateInput{
		Name:     "Daily Login",
		Metadata: json.RawMessage(`"just a string"`),
	})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "metadata")
}

func TestCreateChallengePublishesIngestionEvent(t *testing.T) {
	t.Parallel()

	publisher := &capturePublisher{}
	svc := service.New(repo.NewMemoryRepository(), publisher, nil)

	created, err := svc.Create(context.Background(), service.CreateInput{
		Name:     "Daily Login",
		Metadata: json.RawMessage(`{"category": "engagement"}`),
	})
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	msg := publisher.published[0]
	require.Equal(t, events.EventChallengeIngested, msg.EventType)
	require.Equal(t, created.ID, msg.ChallengeID)
	require.Equal(t, events.SchemaVersion, msg.SchemaVersion)
	require.Equal(t, "engagement", msg.Payload["category"])
}

func TestCreateChallengeSurvivesPublishFailure(t *testing.T) {
	t.Parallel()

	publisher := &capturePublisher{err: errors.New("broker down")}
	svc := service.New(repo.NewMemoryRepository(), publisher, nil)

	created, err := svc.Create(context.Background(), service.CreateInput{Name: "Daily Login"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
}

func TestUpdateChallenge(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	created, err := svc.Create(context.Background(), service.CreateInput{Name: "Daily Login"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, service.UpdateInput{
		Name:     strPtr("Weekly Login"),
		Metadata: json.RawMessage(`{"category": "retention"}`),
	})
	require.NoError(t, err)
	require.Equal(t, "Weekly Login", updated.Name)
	require.JSONEq(t, `{"category": "retention"}`, string(updated.Metadata))
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateChallengeRequiresAField(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	created, err := svc.Create(context.Background(), service.CreateInput{Name: "Daily Login"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, service.UpdateInput{})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "body")
}

func TestUpdateChallengeUnknown(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	_, err := svc.Update(context.Background(), uuid.New(), service.UpdateInput{
		Name: strPtr("Weekly Login"),
	})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteChallenge(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	created, err := svc.Create(context.Background(), service.CreateInput{Name: "Daily Login"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), service.ErrNotFound)
}

func TestDeleteChallengeGuardedByReferences(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory, nil, nil)
	created, err := svc.Create(context.Background(), service.CreateInput{Name: "Daily Login"})
	require.NoError(t, err)

	memory.AddReference(created.ID)
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), service.ErrHasAssociations)

	memory.RemoveReference(created.ID)
	require.NoError(t, svc.Delete(context.Background(), created.ID))
}

func TestListChallenges(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Create(ctx, service.CreateInput{Name: "Challenge Entry"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, pagination.Options{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.True(t, page.HasMore)

	rest, err := svc.List(ctx, pagination.Options{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.False(t, rest.HasMore)
}

func TestChallengeExists(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, nil)
	created, err := svc.Create(context.Background(), service.CreateInput{Name: "Daily Login"})
	require.NoError(t, err)

	exists, err := svc.ChallengeExists(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = svc.ChallengeExists(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, exists)
}
