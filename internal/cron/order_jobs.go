package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cakeverse/cakeverse-backend/internal/orders"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

const (
	OrderPromotionJobName  = "order-promotion"
	OrderCompletionJobName = "order-completion"
)

type orderPromoter interface {
	PromotePending(ctx context.Context, now time.Time) (orders.PromotionResult, error)
	CompleteShipped(ctx context.Context, now time.Time) (orders.PromotionResult, error)
}

// OrderJobParams wire the order lifecycle jobs.
type OrderJobParams struct {
	Logger *logger.Logger
	Orders orderPromoter
}

func (p OrderJobParams) validate() error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if p.Orders == nil {
		return fmt.Errorf("order service required")
	}
	return nil
}

// NewOrderPromotionJob moves stale pending orders to ordered.
func NewOrderPromotionJob(params OrderJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &orderPromotionJob{logg: params.Logger, orders: params.Orders}, nil
}

type orderPromotionJob struct {
	logg   *logger.Logger
	orders orderPromoter
}

func (j *orderPromotionJob) Name() string { return OrderPromotionJobName }

func (j *orderPromotionJob) Run(ctx context.Context, now time.Time) error {
	result, err := j.orders.PromotePending(ctx, now)
	if err != nil {
		return fmt.Errorf("order promotion: %w", err)
	}
	if result.Promoted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "promoted", result.Promoted), "pending orders promoted")
	}
	return nil
}

// NewOrderCompletionJob completes shipped orders past the settle delay and
// settles their payments.
func NewOrderCompletionJob(params OrderJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &orderCompletionJob{logg: params.Logger, orders: params.Orders}, nil
}

type orderCompletionJob struct {
	logg   *logger.Logger
	orders orderPromoter
}

func (j *orderCompletionJob) Name() string { return OrderCompletionJobName }

func (j *orderCompletionJob) Run(ctx context.Context, now time.Time) error {
	result, err := j.orders.CompleteShipped(ctx, now)
	if err != nil {
		return fmt.Errorf("order completion: %w", err)
	}
	if result.Promoted > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"completed": result.Promoted,
			"settled":   result.Settled,
		}), "shipped orders completed")
	}
	return nil
}
