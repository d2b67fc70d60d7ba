package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

const envelopeVersion = 1

// ActorRef names the user whose action produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// Envelope is what lands in outbox_events.payload and, unchanged, in the
// published message body. Consumers dedupe on EventID.
type Envelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	OccurredAt    time.Time                 `json:"occurredAt"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}

func newEnvelope(event DomainEvent) (Envelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	version := event.Version
	if version == 0 {
		version = envelopeVersion
	}
	return Envelope{
		Version:       version,
		EventID:       uuid.NewString(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    occurred.UTC(),
		Actor:         event.Actor,
		Data:          data,
	}, nil
}

// DecodeEnvelope parses a stored payload. An envelope without an event id is
// undeliverable and reported as an error.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return env, errors.New("decode envelope: missing event id")
	}
	return env, nil
}

// Attributes are the message attributes subscribers filter on.
func (e Envelope) Attributes() map[string]string {
	attrs := map[string]string{
		"event_id":       e.EventID,
		"event_type":     string(e.EventType),
		"aggregate_type": string(e.AggregateType),
		"aggregate_id":   e.AggregateID.String(),
		"occurred_at":    e.OccurredAt.Format(time.RFC3339Nano),
		"schema_version": fmt.Sprint(e.Version),
	}
	if e.Actor != nil {
		attrs["actor_id"] = e.Actor.UserID.String()
	}
	return attrs
}
