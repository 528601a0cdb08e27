package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loyaltycore/campaigns-api/domains/campaigns/be/repo"
	"github.com/loyaltycore/campaigns-api/domains/campaigns/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

type fakeDirectory struct {
	known map[uuid.UUID]bool
}

func (f *fakeDirectory) ChallengeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.known[id], nil
}

func newService(known ...uuid.UUID) service.Service {
	dir := &fakeDirectory{known: make(map[uuid.UUID]bool)}
	for _, id := range known {
		dir.known[id] = true
	}
	return service.New(repo.NewMemoryRepository(), dir)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func statusPtr(s service.Status) *service.Status { return &s }

func TestCreateCampaign(t *testing.T) {
	t.Parallel()

	svc := newService()
	created, err := svc.Create(context.Background(), "acme", service.CreateInput{
		Name:        "Summer Rewards",
		Description: strPtr("seasonal promo"),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "acme", created.TenantID)
	require.Equal(t, service.StatusActive, created.Status)
	require.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(context.Background(), "acme", created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestCreateCampaignValidation(t *testing.T) {
	t.Parallel()

	svc := newService()

	_, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "  "})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")

	_, err = svc.Create(context.Background(), "acme", service.CreateInput{Name: "ab"})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")

	bogus := service.Status("archived")
	_, err = svc.Create(context.Background(), "acme", service.CreateInput{
		Name:   "Summer Rewards",
		Status: &bogus,
	})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "status")
}

func TestCreateCampaignDateOrder(t *testing.T) {
	t.Parallel()

	svc := newService()
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), "acme", service.CreateInput{
		Name:     "Summer Rewards",
		StartsAt: timePtr(start),
		EndsAt:   timePtr(start.Add(-time.Hour)),
	})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "ends_at")

	_, err = svc.Create(context.Background(), "acme", service.CreateInput{
		Name:     "Summer Rewards",
		StartsAt: timePtr(start),
		EndsAt:   timePtr(start),
	})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "ends_at")

	_, err = svc.Create(context.Background(), "acme", service.CreateInput{
		Name:     "Summer Rewards",
		StartsAt: timePtr(start),
		EndsAt:   timePtr(start.Add(24 * time.Hour)),
	})
	require.NoError(t, err)
}

func TestGetCampaignTenantIsolation(t *testing.T) {
	t.Parallel()

	svc := newService()
	created, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "globex", created.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateCampaign(t *testing.T) {
	t.Parallel()

	svc := newService()
	created, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "acme", created.ID, service.UpdateInput{
		Name:   strPtr("Autumn Rewards"),
		Status: statusPtr(service.StatusPaused),
	})
	require.NoError(t, err)
	require.Equal(t, "Autumn Rewards", updated.Name)
	require.Equal(t, service.StatusPaused, updated.Status)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateCampaignRequiresAField(t *testing.T) {
	t.Parallel()

	svc := newService()
	created, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "acme", created.ID, service.UpdateInput{})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "body")
}

// A patch moving only one window endpoint is checked against the stored
// value of the other, so it cannot silently invert the window.
func TestUpdateCampaignDateOrderAgainstStoredWindow(t *testing.T) {
	t.Parallel()

	svc := newService()
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), "acme", service.CreateInput{
		Name:     "Summer Rewards",
		StartsAt: timePtr(start),
		EndsAt:   timePtr(start.Add(30 * 24 * time.Hour)),
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "acme", created.ID, service.UpdateInput{
		EndsAt: timePtr(start.Add(-time.Hour)),
	})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "ends_at")

	_, err = svc.Update(context.Background(), "acme", created.ID, service.UpdateInput{
		StartsAt: timePtr(start.Add(60 * 24 * time.Hour)),
	})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "ends_at")
}

func TestUpdateCampaignUnknown(t *testing.T) {
	t.Parallel()

	svc := newService()
	_, err := svc.Update(context.Background(), "acme", uuid.New(), service.UpdateInput{
		Name: strPtr("Autumn Rewards"),
	})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteCampaign(t *testing.T) {
	t.Parallel()

	svc := newService()
	created, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "acme", created.ID))

	_, err = svc.Get(context.Background(), "acme", created.ID)
	require.ErrorIs(t, err, service.ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), "acme", created.ID), service.ErrNotFound)
}

// Deleting a campaign removes its challenge associations with it; a later
// listing of the campaign's associations must come back empty.
func TestDeleteCampaignCascadesAssociations(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	dir := &fakeDirectory{known: map[uuid.UUID]bool{challengeID: true}}
	memory := repo.NewMemoryRepository()
	svc := service.New(memory, dir)
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	_, err = svc.AttachChallenge(ctx, "acme", campaign.ID, service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "Daily Login",
		Frequency:   service.FrequencyDaily,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "acme", campaign.ID))

	page, err := memory.ListChallenges(ctx, campaign.ID, pagination.Options{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestListCampaigns(t *testing.T) {
	t.Parallel()

	svc := newService()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		status := service.StatusActive
		if i%2 == 1 {
			status = service.StatusPaused
		}
		_, err := svc.Create(ctx, "acme", service.CreateInput{
			Name:   "Campaign Number",
			Status: &status,
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "globex", service.CreateInput{Name: "Other Tenant"})
	require.NoError(t, err)

	page, err := svc.List(ctx, "acme", service.ListOptions{}, pagination.Options{Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	require.True(t, page.HasMore)

	rest, err := svc.List(ctx, "acme", service.ListOptions{},
		pagination.Options{Limit: 5, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 2)
	require.False(t, rest.HasMore)

	paused, err := svc.List(ctx, "acme", service.ListOptions{Status: statusPtr(service.StatusPaused)},
		pagination.Options{})
	require.NoError(t, err)
	require.Len(t, paused.Items, 3)
	for _, c := range paused.Items {
		require.Equal(t, service.StatusPaused, c.Status)
	}
}

func TestListCampaignsRejectsUnknownStatusFilter(t *testing.T) {
	t.Parallel()

	svc := newService()
	bogus := service.Status("archived")
	_, err := svc.List(context.Background(), "acme",
		service.ListOptions{Status: &bogus}, pagination.Options{})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "status")
}

func TestAttachChallenge(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	svc := newService(challengeID)
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	assoc, err := svc.AttachChallenge(ctx, "acme", campaign.ID, service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "Daily Login",
		Frequency:   service.FrequencyDaily,
		Points:      10,
		Config:      json.RawMessage(`{"streak_bonus": 5}`),
	})
	require.NoError(t, err)
	require.Equal(t, campaign.ID, assoc.CampaignID)
	require.Equal(t, challengeID, assoc.ChallengeID)
	require.Equal(t, 10, assoc.Points)

	page, err := svc.ListChallenges(ctx, "acme", campaign.ID, pagination.Options{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, assoc.ID, page.Items[0].ID)
}

func TestAttachChallengeUnknownChallenge(t *testing.T) {
	t.Parallel()

	svc := newService()
	campaign, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	_, err = svc.AttachChallenge(context.Background(), "acme", campaign.ID, service.AttachChallengeInput{
		ChallengeID: uuid.New(),
		Name:        "Daily Login",
		Frequency:   service.FrequencyDaily,
	})
	require.ErrorIs(t, err, service.ErrChallengeNotFound)
}

func TestAttachChallengeValidation(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	svc := newService(challengeID)
	campaign, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	_, err = svc.AttachChallenge(context.Background(), "acme", campaign.ID, service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "DL",
		Frequency:   "  ",
		Config:      json.RawMessage(`[1, 2, 3]`),
	})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")
	require.Contains(t, verr.Fields, "frequency")
	require.Contains(t, verr.Fields, "config")
}

// Points may be negative; a penalty challenge is a valid configuration, and
// free-form frequency tokens pass through untouched.
func TestAttachChallengeAcceptsPenaltyPointsAndCustomFrequency(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	svc := newService(challengeID)
	campaign, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	assoc, err := svc.AttachChallenge(context.Background(), "acme", campaign.ID, service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "Missed Check-in",
		Frequency:   "every 2 weeks",
		Points:      -25,
	})
	require.NoError(t, err)
	require.Equal(t, -25, assoc.Points)
	require.Equal(t, "every 2 weeks", assoc.Frequency)
}

func TestAttachChallengeDuplicatePair(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	svc := newService(challengeID)
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	input := service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "Daily Login",
		Frequency:   service.FrequencyDaily,
	}
	_, err = svc.AttachChallenge(ctx, "acme", campaign.ID, input)
	require.NoError(t, err)

	_, err = svc.AttachChallenge(ctx, "acme", campaign.ID, input)
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "challenge_id")
}

func TestAttachChallengeTenantIsolation(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	svc := newService(challengeID)
	campaign, err := svc.Create(context.Background(), "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	_, err = svc.AttachChallenge(context.Background(), "globex", campaign.ID, service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "Daily Login",
		Frequency:   service.FrequencyDaily,
	})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestDetachChallenge(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	svc := newService(challengeID)
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "acme", service.CreateInput{Name: "Summer Rewards"})
	require.NoError(t, err)

	assoc, err := svc.AttachChallenge(ctx, "acme", campaign.ID, service.AttachChallengeInput{
		ChallengeID: challengeID,
		Name:        "Daily Login",
		Frequency:   service.FrequencyDaily,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DetachChallenge(ctx, "acme", campaign.ID, assoc.ID))
	require.ErrorIs(t, svc.DetachChallenge(ctx, "acme", campaign.ID, assoc.ID),
		service.ErrAssociationNotFound)

	page, err := svc.ListChallenges(ctx, "acme", campaign.ID, pagination.Options{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}
