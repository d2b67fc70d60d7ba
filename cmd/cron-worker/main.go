package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/cakeverse/cakeverse-backend/internal/catalog"
	"github.com/cakeverse/cakeverse-backend/internal/cron"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/orders"
	"github.com/cakeverse/cakeverse-backend/internal/shops"
	"github.com/cakeverse/cakeverse-backend/internal/users"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/instance"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/migrate"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), users.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(conn),
		Tx:           dbClient,
		Outbox:       outbox.NewService(outboxRepo, logg),
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
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	jobParams := cron.OrderJobParams{Logger: logg, Orders: orderSvc}
	promotionJob, err := cron.NewOrderPromotionJob(jobParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion job", err)
		os.Exit(1)
	}
	completionJob, err := cron.NewOrderCompletionJob(jobParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create completion job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		Repository:  outboxRepo,
		Retention:   cfg.Outbox.Retention,
		ParkedAfter: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	schedulers := []struct {
		name     string
		interval time.Duration
		jobs     []cron.Job
	}{
		{name: cron.OrderPromotionJobName, interval: cfg.Cron.PromotionInterval, jobs: []cron.Job{promotionJob}},
		{name: cron.OrderCompletionJobName, interval: cfg.Cron.CompletionInterval, jobs: []cron.Job{completionJob, retentionJob}},
	}
	services := make([]*cron.Service, 0, len(schedulers))
	for _, s := range schedulers {
		lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.App.Env+":"+s.name), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create scheduler lock", err)
			os.Exit(1)
		}
		svc, err := cron.NewService(cron.ServiceParams{
			Name:     s.name,
			Logger:   logg,
			Jobs:     s.jobs,
			Lock:     lock,
			Metrics:  jobMetrics,
			Interval: s.interval,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create scheduler", err)
			os.Exit(1)
		}
		services = append(services, svc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	for _, svc := range services {
		svc := svc
		group.Go(func() error { return svc.Run(groupCtx) })
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
