package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
)

func depositEvent(tb testing.TB, eventID string, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventDepositCompleted,
		AggregateType: enums.AggregateDeposit,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(tb, eventID),
		AttemptCount:  attempts,
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		depositEvent(t, "event-one", 0),
		depositEvent(t, "event-two", 0),
	}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows %v", repo.published)
	}
}

func TestPublishCarriesRoutingAttributes(t *testing.T) {
	event := depositEvent(t, "evt-123", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_id"] != "evt-123" {
		t.Fatalf("event_id attribute %q", attrs["event_id"])
	}
	if attrs["event_type"] != string(enums.EventDepositCompleted) {
		t.Fatalf("event_type attribute %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("aggregate_id attribute %q", attrs["aggregate_id"])
	}
}

func TestUndecodablePayloadIsParked(t *testing.T) {
	event := depositEvent(t, "x", 0)
	event.Payload = json.RawMessage(`not-json`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("undecodable row must not be published")
	}
}

func TestExhaustedAttemptsStillRecordFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{depositEvent(t, "last-try", 1)}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	service := newTestService(t, repo, pub, &config.OutboxConfig{BatchSize: 1, PollIntervalMS: 100, MaxAttempts: 2})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected failure recorded, got %d", len(repo.failed))
	}
}

func TestNextBackoffIsCapped(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("backoff not capped: %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
		PubSub: config.PubSubConfig{DomainTopic: "cakeverse-domain-events"},
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.Envelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) DomainPublisher() *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}
