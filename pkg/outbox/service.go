package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// DomainEvent is a state change worth telling other systems about.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

var errTxRequired = errors.New("outbox: emit requires the caller's transaction")

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit writes the event through tx, so it only becomes visible to the
// publisher if the ledger change it describes commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if !event.EventType.IsValid() || !event.AggregateType.IsValid() {
		return fmt.Errorf("outbox: unknown event %q on aggregate %q", event.EventType, event.AggregateType)
	}
	env, err := newEnvelope(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := s.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return err
	}

	if s.logg != nil && ctx != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   env.EventType,
			"aggregate_id": env.AggregateID.String(),
		}), "outbox event staged")
	}
	return nil
}
