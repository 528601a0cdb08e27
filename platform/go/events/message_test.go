package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loyaltycore/campaigns-api/platform/go/validation"
)

func TestNewChallengeIngested(t *testing.T) {
	t.Parallel()

	challengeID := uuid.New()
	msg := NewChallengeIngested(challengeID, map[string]interface{}{"points": float64(10)})

	require.Equal(t, SchemaVersion, msg.SchemaVersion)
	require.Equal(t, EventChallengeIngested, msg.EventType)
	require.Equal(t, challengeID, msg.ChallengeID)
	require.WithinDuration(t, time.Now().UTC(), msg.OccurredAt, time.Minute)
}

func TestMessageEncode(t *testing.T) {
	t.Parallel()

	validator := validation.NewSchemaValidator()
	msg := NewChallengeIngested(uuid.New(), map[string]interface{}{"kind": "streak"})

	body, err := msg.Encode(validator)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, msg.ChallengeID, decoded.ChallengeID)
	require.Equal(t, msg.EventType, decoded.EventType)
}

func TestMessageEncodeRejectsInvalidEnvelope(t *testing.T) {
	t.Parallel()

	validator := validation.NewSchemaValidator()

	msg := NewChallengeIngested(uuid.New(), nil)
	msg.EventType = ""

	_, err := msg.Encode(validator)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid message envelope")
}
