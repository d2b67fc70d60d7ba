package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot in dev when
// AutoMigrate is set. SQLite databases are left to the test harness.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})
	if cfg.FeatureFlags.UseSQLite || strings.EqualFold(cfg.DB.Driver, config.DriverSQLite) {
		logg.Warn(ctx, "skipping goose auto-run on sqlite")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB, Embedded())
	if err != nil {
		return err
	}

	results, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		logg.Info(logg.WithFields(ctx, map[string]any{"version": r.Version, "took": r.Duration}), "migration applied")
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "dev migrations up to date")
	return nil
}
