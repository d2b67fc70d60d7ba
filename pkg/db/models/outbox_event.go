package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// OutboxEvent is a staged domain event. Payload holds the encoded envelope;
// the relay fills PublishedAt or, after repeated failures, parks the row by
// raising AttemptCount to the configured ceiling.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AttemptsLeft is how many relay tries remain before the row is parked.
func (e OutboxEvent) AttemptsLeft(maxAttempts int) int {
	if e.PublishedAt != nil || e.AttemptCount >= maxAttempts {
		return 0
	}
	return maxAttempts - e.AttemptCount
}
