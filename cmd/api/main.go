package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/cakeverse/cakeverse-backend/api/controllers"
	"github.com/cakeverse/cakeverse-backend/api/routes"
	"github.com/cakeverse/cakeverse-backend/internal/aigen"
	"github.com/cakeverse/cakeverse-backend/internal/catalog"
	"github.com/cakeverse/cakeverse-backend/internal/complaints"
	"github.com/cakeverse/cakeverse-backend/internal/deposits"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/orders"
	"github.com/cakeverse/cakeverse-backend/internal/shops"
	"github.com/cakeverse/cakeverse-backend/internal/users"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	payoswebhook "github.com/cakeverse/cakeverse-backend/internal/webhooks/payos"
	"github.com/cakeverse/cakeverse-backend/internal/withdrawals"
	"github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/instance"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/migrate"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/payos"
	"github.com/cakeverse/cakeverse-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"payos":    cfg.Gateway.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), users.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	depositSvc, err := deposits.NewService(deposits.ServiceParams{
		Repo:    deposits.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  events,
		Wallets: walletSvc,
		Ledger:  ledgerSvc,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	withdrawalSvc, err := withdrawals.NewService(withdrawals.ServiceParams{
		Repo:    withdrawals.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  events,
		Wallets: walletSvc,
		Ledger:  ledgerSvc,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	ordersRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         ordersRepo,
		Tx:           dbClient,
		Outbox:       events,
		Wallets:      walletSvc,
		Ledger:       ledgerSvc,
		Catalog:      catalog.NewRepository(conn),
		Shops:        shops.NewRepository(conn),
		Metrics:      ledgerMetrics,
		Logger:       logg,
		PendingDelay: cfg.Ledger.PendingToOrderedDelay,
		ShippedDelay: cfg.Ledger.ShippedToCompletedDelay,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	complaintSvc, err := complaints.NewService(complaints.ServiceParams{
		Repo:        complaints.NewRepository(conn),
		Orders:      ordersRepo,
		Transitions: orderSvc,
		Tx:          dbClient,
		Outbox:      events,
		Metrics:     ledgerMetrics,
		Logger:      logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	aigenSvc, err := aigen.NewService(aigen.ServiceParams{
		Tx:      dbClient,
		Wallets: walletSvc,
		Ledger:  ledgerSvc,
		Cost:    cfg.Ledger.GenerationCost(),
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	var (
		linker   controllers.PaymentLinker
		verifier *payos.Client
	)
	if cfg.Gateway.Enabled() {
		client, err := payos.NewClient(cfg.Gateway.ClientID, cfg.Gateway.APIKey, cfg.Gateway.ChecksumKey,
			payos.WithBaseURL(cfg.Gateway.BaseURL),
			payos.WithTimeout(cfg.Gateway.Timeout),
		)
		if err != nil {
			return routes.Dependencies{}, err
		}
		linker = client
		verifier = client
	} else {
		logg.Warn(context.Background(), "payos credentials missing, deposits will not receive checkout links")
	}

	webhookParams := payoswebhook.ServiceParams{
		Deposits:      depositSvc,
		AllowUnsigned: cfg.FeatureFlags.AllowUnsignedWebhooks,
		Logger:        logg,
	}
	if verifier != nil {
		webhookParams.Verifier = verifier
	}
	webhookSvc, err := payoswebhook.NewService(webhookParams)
	if err != nil {
		return routes.Dependencies{}, err
	}
	tokens, err := auth.NewTokens(cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, err
	}
	guard, err := payoswebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "payos")
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Tokens:        tokens,
		Idempotency:   redisClient,
		Limiter:       redisClient,
		Gatherer:      prometheus.DefaultGatherer,
		Wallets:       walletSvc,
		Ledger:        ledgerSvc,
		Deposits:      depositSvc,
		Withdrawals:   withdrawalSvc,
		Orders:        orderSvc,
		Complaints:    complaintSvc,
		Generations:   aigenSvc,
		PaymentLinks:  linker,
		Webhook:       webhookSvc,
		WebhookGuard:  guard,
		LedgerMetrics: ledgerMetrics,
	}, nil
}
