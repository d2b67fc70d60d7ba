package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

const (
	OutboxRetentionJobName = "outbox-retention"

	defaultOutboxRetention = 30 * 24 * time.Hour
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxRetentionJobParams: ParkedAfter must match the publisher's max
// attempts so rows still being retried are never pruned.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	Repository  outboxPruner
	Retention   time.Duration
	ParkedAfter int
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	repo        outboxPruner
	retention   time.Duration
	parkedAfter int
}

// NewOutboxRetentionJob prunes outbox rows that were published or parked
// before the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.ParkedAfter <= 0 {
		return nil, fmt.Errorf("parked-after attempt count must be positive")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		repo:        params.Repository,
		retention:   params.Retention,
		parkedAfter: params.ParkedAfter,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return OutboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context, now time.Time) error {
	cutoff := now.UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, nil, cutoff, j.parkedAfter)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":  cutoff.Format(time.RFC3339),
			"deleted": deleted,
		}), "outbox rows pruned")
	}
	return nil
}
