package persistence

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// cascadeFixture holds a tenant with one campaign, one catalog challenge and
// one participant, with all three association tables wired to the campaign.
type cascadeFixture struct {
	tenantID      string
	campaignID    uuid.UUID
	challengeID   uuid.UUID
	participantID uuid.UUID

	campaigns    *CampaignStore
	challenges   *ChallengeStore
	participants *ParticipantStore
}

func setupCampaignCascade(t *testing.T, ctx context.Context) (*cascadeFixture, func()) {
	t.Helper()

	pool, cleanup := mustTestPool(t)

	tenants, err := NewTenantStore(pool)
	require.NoError(t, err)
	campaigns, err := NewCampaignStore(pool)
	require.NoError(t, err)
	challenges, err := NewChallengeStore(pool)
	require.NoError(t, err)
	participants, err := NewParticipantStore(pool)
	require.NoError(t, err)

	f := &cascadeFixture{
		tenantID:     "tenant-" + uuid.NewString(),
		campaigns:    campaigns,
		challenges:   challenges,
		participants: participants,
	}

	_, err = tenants.ResolveOrCreate(ctx, f.tenantID)
	require.NoError(t, err)

	campaign, err := campaigns.CreateCampaign(ctx, CampaignRecord{
		CampaignID: uuid.New(),
		TenantID:   f.tenantID,
		Name:       "Summer Rewards",
		Status:     "active",
	})
	require.NoError(t, err)
	f.campaignID = campaign.CampaignID

	challenge, err := challenges.CreateChallenge(ctx, ChallengeRecord{
		ChallengeID: uuid.New(),
		Name:        "Daily Login",
	})
	require.NoError(t, err)
	f.challengeID = challenge.ChallengeID

	participant, err := participants.CreateParticipant(ctx, ParticipantRecord{
		ParticipantID: uuid.New(),
		TenantID:      f.tenantID,
		FullName:      "Jordan Reyes",
		Nickname:      "jreyes-" + uuid.NewString(),
		Status:        "active",
	})
	require.NoError(t, err)
	f.participantID = participant.ParticipantID

	_, err = campaigns.AttachChallenge(ctx, CampaignChallengeRecord{
		CampaignChallengeID: uuid.New(),
		CampaignID:          f.campaignID,
		ChallengeID:         f.challengeID,
		Name:                "Daily Login",
		Frequency:           "daily",
		Points:              10,
	})
	require.NoError(t, err)

	_, err = participants.JoinCampaign(ctx, CampaignParticipantRecord{
		CampaignParticipantID: uuid.New(),
		CampaignID:            f.campaignID,
		ParticipantID:         f.participantID,
	})
	require.NoError(t, err)

	_, err = participants.JoinChallenge(ctx, ParticipantChallengeRecord{
		ParticipantChallengeID: uuid.New(),
		ParticipantID:          f.participantID,
		ChallengeID:            f.challengeID,
		CampaignID:             f.campaignID,
	})
	require.NoError(t, err)

	return f, cleanup
}

// Deleting a campaign must sweep all three dependent tables in one
// transaction while leaving the participant and the catalog challenge alone.
func TestCampaignDeleteCascade(t *testing.T) {
	if _, ok := os.LookupEnv("TEST_DATABASE_URL"); !ok {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	f, cleanup := setupCampaignCascade(t, ctx)
	defer cleanup()

	pool := f.campaigns.pool

	require.NoError(t, f.campaigns.DeleteCampaign(ctx, f.tenantID, f.campaignID))

	_, err := f.campaigns.GetCampaign(ctx, f.tenantID, f.campaignID)
	require.ErrorIs(t, err, ErrCampaignNotFound)

	for _, table := range []string{CampaignChallengesTable, CampaignParticipantsTable, ParticipantChallengesTable} {
		var count int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE campaign_id = $1`, table)
		require.NoError(t, pool.QueryRow(ctx, query, f.campaignID).Scan(&count))
		require.Zero(t, count, "table %s still references the campaign", table)
	}

	_, err = f.participants.GetParticipant(ctx, f.tenantID, f.participantID)
	require.NoError(t, err)
	_, err = f.challenges.GetChallenge(ctx, f.challengeID)
	require.NoError(t, err)
}

// A foreign tenant cannot trigger the cascade; the rows stay untouched.
func TestCampaignDeleteCascadeTenantScoped(t *testing.T) {
	if _, ok := os.LookupEnv("TEST_DATABASE_URL"); !ok {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	f, cleanup := setupCampaignCascade(t, ctx)
	defer cleanup()

	err := f.campaigns.DeleteCampaign(ctx, "tenant-"+uuid.NewString(), f.campaignID)
	require.ErrorIs(t, err, ErrCampaignNotFound)

	_, err = f.campaigns.GetCampaign(ctx, f.tenantID, f.campaignID)
	require.NoError(t, err)

	attached, err := f.campaigns.ChallengeAttached(ctx, f.campaignID, f.challengeID)
	require.NoError(t, err)
	require.True(t, attached)

	member, err := f.participants.MembershipExists(ctx, f.campaignID, f.participantID)
	require.NoError(t, err)
	require.True(t, member)
}
