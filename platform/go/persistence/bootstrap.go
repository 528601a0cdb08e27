package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Table names shared by stores and the schema bootstrap.
const (
	TenantsTable               = "tenants"
	CampaignsTable             = "campaigns"
	ChallengesTable            = "challenges"
	ParticipantsTable          = "participants"
	CampaignChallengesTable    = "campaign_challenges"
	CampaignParticipantsTable  = "campaign_participants"
	ParticipantChallengesTable = "participant_challenges"
)

// EnsureSchema applies the core DDL idempotently. Tenancy is enforced at the
// query layer; the constraints below back the uniqueness and referential
// invariants that must survive concurrent writers.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	tenant_id TEXT PRIMARY KEY CHECK (char_length(tenant_id) >= 1),
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'suspended', 'deleted')),
	deleted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, TenantsTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	campaign_id UUID PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES %s (tenant_id),
	name TEXT NOT NULL,
	description TEXT,
	starts_at TIMESTAMPTZ,
	ends_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, CampaignsTable, TenantsTable),
		fmt.Sprintf(`
CREATE INDEX IF NOT EXISTS %s_tenant_created_idx ON %s (tenant_id, created_at DESC);`,
			CampaignsTable, CampaignsTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	challenge_id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, ChallengesTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	participant_id UUID PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES %s (tenant_id),
	full_name TEXT NOT NULL,
	nickname TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'ineligible')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (tenant_id, nickname)
);`, ParticipantsTable, TenantsTable),
		fmt.Sprintf(`
CREATE INDEX IF NOT EXISTS %s_tenant_created_idx ON %s (tenant_id, created_at DESC);`,
			ParticipantsTable, ParticipantsTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	campaign_challenge_id UUID PRIMARY KEY,
	campaign_id UUID NOT NULL REFERENCES %s (campaign_id),
	challenge_id UUID NOT NULL REFERENCES %s (challenge_id),
	name TEXT NOT NULL,
	description TEXT,
	frequency TEXT NOT NULL,
	points INTEGER NOT NULL DEFAULT 0,
	config JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (campaign_id, challenge_id)
);`, CampaignChallengesTable, CampaignsTable, ChallengesTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	campaign_participant_id UUID PRIMARY KEY,
	campaign_id UUID NOT NULL REFERENCES %s (campaign_id),
	participant_id UUID NOT NULL REFERENCES %s (participant_id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (campaign_id, participant_id)
);`, CampaignParticipantsTable, CampaignsTable, ParticipantsTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	participant_challenge_id UUID PRIMARY KEY,
	participant_id UUID NOT NULL REFERENCES %s (participant_id),
	challenge_id UUID NOT NULL REFERENCES %s (challenge_id),
	campaign_id UUID NOT NULL REFERENCES %s (campaign_id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (participant_id, challenge_id)
);`, ParticipantChallengesTable, ParticipantsTable, ChallengesTable, CampaignsTable),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
