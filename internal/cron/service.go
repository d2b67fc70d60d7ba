package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

// ServiceParams configure one scheduler loop. Jobs run in slice order.
type ServiceParams struct {
	Name     string
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service ticks its jobs on a fixed cadence. A cycle only runs while this
// replica holds the lock.
type Service struct {
	name     string
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	jobs, err := checkJobs(params.Jobs)
	if err != nil {
		return nil, err
	}
	s := &Service{
		name:     params.Name,
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      time.Now,
	}
	if s.name == "" {
		s.name = "cron"
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

func (s *Service) Name() string { return s.name }

func (s *Service) Interval() time.Duration { return s.interval }

// Run ticks once straight away and then every interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "scheduler", s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Debug(ctx, "lock held elsewhere; skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release scheduler lock", err)
		}
	}()

	now := s.now().UTC()
	failed := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		if !s.runJob(ctx, job, now) {
			failed++
		}
	}
	if failed > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "failed_jobs", failed), "cycle finished with failures")
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job, now time.Time) bool {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx, now)
	took := time.Since(started)
	s.metrics.Observe(job.Name(), started, took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return false
	}
	s.logg.Debug(ctx, "job completed")
	return true
}
