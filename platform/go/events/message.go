package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/platform/go/validation"
)

// EventChallengeIngested announces that a challenge definition entered the
// catalog and is ready for downstream scoring.
const EventChallengeIngested = "challenge.ingested"

// messageSchema pins the envelope downstream consumers rely on. Payload stays
// open so challenge types can carry their own fields.
const messageSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["schema_version", "event_type", "challenge_id", "occurred_at"],
	"properties": {
		"schema_version": {"type": "integer", "minimum": 1},
		"event_type": {"type": "string", "minLength": 1},
		"challenge_id": {"type": "string", "format": "uuid"},
		"occurred_at": {"type": "string", "format": "date-time"},
		"payload": {"type": "object"}
	},
	"additionalProperties": false
}`

// SchemaVersion is the current envelope version.
const SchemaVersion = 1

// Message is the ingestion event envelope published to the broker.
type Message struct {
	SchemaVersion int                    `json:"schema_version"`
	EventType     string                 `json:"event_type"`
	ChallengeID   uuid.UUID              `json:"challenge_id"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// NewChallengeIngested builds a versioned envelope for a freshly ingested
// challenge.
func NewChallengeIngested(challengeID uuid.UUID, payload map[string]interface{}) Message {
	return Message{
		SchemaVersion: SchemaVersion,
		EventType:     EventChallengeIngested,
		ChallengeID:   challengeID,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
}

// Encode serialises the message after checking it against the envelope
// schema, so a malformed envelope never reaches the broker.
func (m Message) Encode(validator *validation.SchemaValidator) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	if err := validator.Validate("events/message", []byte(messageSchema), body); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	return body, nil
}
