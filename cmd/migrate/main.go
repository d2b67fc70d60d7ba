package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&o.dir, "dir", "", "migrations directory on disk (default: embedded set; create uses "+migrate.DefaultDir+")")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()
	return o
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	logg := logger.New(logger.Options{ServiceName: "cakeverse-migrate"})
	ctx := logg.WithField(context.Background(), "cmd", opts.cmd)

	if err := runOffline(ctx, logg, opts); err != errNeedsDB {
		exitOn(ctx, logg, opts.cmd, err)
		return
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "cakeverse-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, "database", err)
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "sql database", err)

	migrator, err := migrate.New(sqlDB, migrate.Source(opts.dir))
	exitOn(ctx, logg, "migrator", err)

	var results []migrate.Result
	switch opts.cmd {
	case "up":
		results, err = migrator.Up(ctx)
	case "down":
		results, err = migrator.Down(ctx)
	case "version":
		if opts.version == "" {
			err = fmt.Errorf("missing -version")
			break
		}
		results, err = migrator.MigrateTo(ctx, opts.version)
	case "status":
		err = printStatus(ctx, migrator)
	default:
		err = fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	for _, r := range results {
		fmt.Printf("%-4s %d %s (%s)\n", r.Direction, r.Version, r.Path, r.Duration)
	}
	exitOn(ctx, logg, opts.cmd, err)
	logg.Info(logg.WithField(ctx, "migrations", len(results)), "migrate finished")
}

var errNeedsDB = fmt.Errorf("command needs a database")

// runOffline handles the commands that only touch files.
func runOffline(ctx context.Context, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return nil
	case "validate":
		if err := migrate.ValidateFS(migrate.Source(opts.dir)); err != nil {
			return err
		}
		logg.Info(ctx, "migrations valid")
		return nil
	default:
		return errNeedsDB
	}
}

func printStatus(ctx context.Context, migrator *migrate.Migrator) error {
	status, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	versions := make([]int64, 0, len(status))
	for v := range status {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	for _, v := range versions {
		state := "pending"
		if status[v] {
			state = "applied"
		}
		fmt.Printf("%d  %s\n", v, state)
	}
	return nil
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
