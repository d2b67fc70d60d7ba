package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	DomainPublisher() *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	// Publisher overrides the domain topic publisher.
	Publisher publisher
}

// Service relays committed outbox rows to the domain topic.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	publisher    publisher
	topic        string
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}

	pub := params.Publisher
	if pub == nil {
		pub = newGCPPublisher(params.PubSub.DomainPublisher())
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher not configured for topic %q", params.Config.PubSub.DomainTopic)
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		publisher:    pub,
		topic:        params.Config.PubSub.DomainTopic,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		s.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// Run polls until ctx is cancelled. Full batches are drained back to back;
// batch errors back off exponentially with jitter.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = interval
		if processed {
			continue
		}
		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		processed = true
		for _, event := range events {
			if err := s.relay(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// relay publishes one row and records the outcome. Only bookkeeping failures
// are returned; publish failures are recorded on the row.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, s.eventFields(event, envelope)), "outbox event is not decodable; parking it")
		if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
		}
		return nil
	}

	fields := s.eventFields(event, envelope)
	if err := s.publish(ctx, event, envelope); err != nil {
		fields["attempt_count"] = event.AttemptCount + 1
		fields["error"] = err.Error()
		msg := "outbox publish failed"
		if event.AttemptsLeft(s.maxAttempts) <= 1 {
			msg = "outbox publish failed; attempts exhausted"
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
		if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		return nil
	}

	if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, envelope outbox.Envelope) error {
	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: envelope.Attributes(),
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.publisher.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned no result for topic %s", s.topic)
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.Envelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"topic":          s.topic,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
