package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cakeverse/cakeverse-backend/api/controllers"
	ordercontrollers "github.com/cakeverse/cakeverse-backend/api/controllers/orders"
	webhookcontrollers "github.com/cakeverse/cakeverse-backend/api/controllers/webhooks"
	"github.com/cakeverse/cakeverse-backend/api/middleware"
	"github.com/cakeverse/cakeverse-backend/internal/aigen"
	"github.com/cakeverse/cakeverse-backend/internal/complaints"
	"github.com/cakeverse/cakeverse-backend/internal/deposits"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/orders"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	"github.com/cakeverse/cakeverse-backend/internal/withdrawals"
	"github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/redis"
)

// Dependencies bundles the collaborators the HTTP surface is built from.
type Dependencies struct {
	DB    controllers.Pinger
	Redis controllers.Pinger

	Tokens      *auth.Tokens
	Idempotency redis.IdempotencyStore
	Limiter     middleware.RateLimitStore
	Gatherer    prometheus.Gatherer

	Wallets      wallet.Service
	Ledger       ledger.Service
	Deposits     deposits.Service
	Withdrawals  withdrawals.Service
	Orders       orders.Service
	Complaints   complaints.Service
	Generations  aigen.Service
	PaymentLinks controllers.PaymentLinker

	Webhook       webhookcontrollers.PayOSWebhookService
	WebhookGuard  webhookGuard
	LedgerMetrics *metrics.LedgerMetrics
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryKey string) (bool, error)
	Release(ctx context.Context, deliveryKey string) error
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	aiChargePolicy := middleware.NewRateLimitPolicy("ai-charge", middleware.RateLimitByUser, cfg.RateLimit.Window, cfg.RateLimit.AIChargeUser)
	depositPolicy := middleware.NewRateLimitPolicy("deposit", middleware.RateLimitByUser, cfg.RateLimit.Window, cfg.RateLimit.DepositUser)
	webhookPolicy := middleware.NewRateLimitPolicy("payos-webhook", middleware.RateLimitByIP, cfg.RateLimit.Window, cfg.RateLimit.WebhookIP)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, deps.Limiter, logg)).
			Post("/webhooks/payos", webhookcontrollers.PayOSWebhook(deps.Webhook, deps.WebhookGuard, deps.LedgerMetrics, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Tokens, logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", controllers.WalletGet(deps.Wallets, logg))
				r.Get("/transactions", controllers.WalletTransactions(deps.Wallets, deps.Ledger, logg))
			})

			r.Route("/deposits", func(r chi.Router) {
				r.With(middleware.RateLimit(depositPolicy, deps.Limiter, logg)).
					Post("/", controllers.DepositCreate(deps.Deposits, deps.PaymentLinks, controllers.CheckoutURLs{
						ReturnURL: cfg.Gateway.ReturnURL,
						CancelURL: cfg.Gateway.CancelURL,
					}, logg))
				r.Get("/", controllers.DepositList(deps.Deposits, logg))
				r.Post("/{depositId}/cancel", controllers.DepositCancel(deps.Deposits, logg))
			})

			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", controllers.WithdrawalCreate(deps.Withdrawals, logg))
				r.Get("/", controllers.WithdrawalList(deps.Withdrawals, logg))
				r.Post("/{withdrawalId}/cancel", controllers.WithdrawalCancel(deps.Withdrawals, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.Post("/{orderId}/pay", ordercontrollers.Pay(deps.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
				r.Post("/{orderId}/complete", ordercontrollers.Complete(deps.Orders, logg))
				r.Post("/{orderId}/complaints", ordercontrollers.FileComplaint(deps.Complaints, logg))
			})

			r.Route("/complaints", func(r chi.Router) {
				r.Get("/", controllers.ComplaintListMine(deps.Complaints, logg))
				r.Get("/{complaintId}", controllers.ComplaintDetail(deps.Complaints, logg))
			})

			r.Route("/shop", func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageShop, logg))
				r.Post("/orders/{orderId}/status", ordercontrollers.ShopStatus(deps.Orders, logg))
				r.Get("/{shopId}/orders", ordercontrollers.ShopList(deps.Orders, logg))
			})

			r.With(middleware.RateLimit(aiChargePolicy, deps.Limiter, logg)).
				Post("/ai/generations/charge", controllers.AIGenerationCharge(deps.Generations, logg))
		})
	})

	r.Route("/api/staff/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens, logg))
		r.Use(middleware.RequireCapability(enums.CapabilityResolveComplaints, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/complaints", func(r chi.Router) {
			r.Get("/", controllers.StaffComplaintList(deps.Complaints, logg))
			r.Get("/{complaintId}", controllers.ComplaintDetail(deps.Complaints, logg))
			r.Post("/{complaintId}/approve", controllers.StaffComplaintApprove(deps.Complaints, logg))
			r.Post("/{complaintId}/reject", controllers.StaffComplaintReject(deps.Complaints, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens, logg))
		r.Use(middleware.RequireCapability(enums.CapabilityProcessWithdrawals, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.AdminWithdrawalList(deps.Withdrawals, logg))
			r.Post("/{withdrawalId}/confirm", controllers.AdminWithdrawalConfirm(deps.Withdrawals, logg))
			r.Post("/{withdrawalId}/reject", controllers.AdminWithdrawalReject(deps.Withdrawals, logg))
		})
	})

	return r
}
