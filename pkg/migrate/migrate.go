package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written during development.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrations embed: %v", err))
	}
	return sub
}

// Source picks the migration set: the embedded one, or dir on disk when set.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Migrator applies the ledger schema with goose. The schema relies on
// postgres-only features (partial indexes, jsonb, check constraints).
type Migrator struct {
	provider *goose.Provider
}

func New(db *sql.DB, source fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if source == nil {
		source = Embedded()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Result summarises one applied or rolled back migration.
type Result struct {
	Version   int64
	Path      string
	Direction string
	Duration  string
}

func (m *Migrator) Up(ctx context.Context) ([]Result, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return summarize(results), fmt.Errorf("goose up: %w", err)
	}
	return summarize(results), nil
}

func (m *Migrator) Down(ctx context.Context) ([]Result, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return summarize([]*goose.MigrationResult{result}), nil
}

// MigrateTo moves the schema up or down until target is the current version.
func (m *Migrator) MigrateTo(ctx context.Context, targetVersion string) ([]Result, error) {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := m.provider.UpTo(ctx, target)
		if err != nil {
			return summarize(results), fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return summarize(results), nil
	default:
		results, err := m.provider.DownTo(ctx, target)
		if err != nil {
			return summarize(results), fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return summarize(results), nil
	}
}

// Status lists every known migration with whether it is applied.
func (m *Migrator) Status(ctx context.Context) (map[int64]bool, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make(map[int64]bool, len(statuses))
	for _, s := range statuses {
		if s == nil || s.Source == nil {
			continue
		}
		out[s.Source.Version] = s.State == goose.StateApplied
	}
	return out, nil
}

func summarize(results []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:   r.Source.Version,
			Path:      r.Source.Path,
			Direction: r.Direction,
			Duration:  r.Duration.String(),
		})
	}
	return out
}
