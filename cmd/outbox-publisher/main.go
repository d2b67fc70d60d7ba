package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/instance"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/migrate"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})
	err = run(ctx, cfg, logg)
	stop()
	if err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}

// run owns every connection so deferred closes happen before main exits.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWith(ctx, logg, "pubsub", pubsubClient.Close)

	relay, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return fmt.Errorf("create relay: %w", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeWith(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}
