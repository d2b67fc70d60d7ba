package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/internal/deposits"
	payoswebhook "github.com/cakeverse/cakeverse-backend/internal/webhooks/payos"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
)

const maxWebhookBody = 64 << 10

type PayOSWebhookService interface {
	Parse(raw []byte) (*payoswebhook.Delivery, error)
	Handle(ctx context.Context, delivery *payoswebhook.Delivery) (deposits.Outcome, error)
}

type payosWebhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryKey string) (bool, error)
	Release(ctx context.Context, deliveryKey string) error
}

type webhookResult struct {
	Outcome deposits.Outcome `json:"outcome"`
}

// PayOSWebhook reconciles gateway payment notifications against deposits.
// Probes without identifying fields are acknowledged without side effects.
// Handled deliveries are counted by the deposit service; this handler only
// counts the ones it turns away itself.
func PayOSWebhook(svc PayOSWebhookService, guard payosWebhookGuard, ledgerMetrics *metrics.LedgerMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		delivery, err := svc.Parse(payload)
		if err != nil {
			ledgerMetrics.ObserveNotification(string(deposits.OutcomeRejected))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		key := delivery.Key()
		if logg != nil && key != "" {
			ctx = logg.WithField(ctx, "delivery_key", key)
		}
		if guard != nil && key != "" {
			alreadyProcessed, err := guard.CheckAndMark(ctx, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				ledgerMetrics.ObserveNotification(string(deposits.OutcomeDuplicate))
				responses.WriteSuccess(w, webhookResult{Outcome: deposits.OutcomeDuplicate})
				return
			}
		}

		outcome, err := svc.Handle(ctx, delivery)
		if err != nil {
			if guard != nil && key != "" {
				if releaseErr := guard.Release(ctx, key); releaseErr != nil && logg != nil {
					logg.Error(ctx, "release webhook idempotency key", releaseErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, webhookResult{Outcome: outcome})
	}
}
