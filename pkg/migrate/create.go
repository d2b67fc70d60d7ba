package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: money columns are numeric(14,2), status columns carry CHECK lists
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
SELECT 1;
-- +goose StatementEnd
`

func slug(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<slug>.sql with a
// reversible goose skeleton and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	s := slug(name)
	if s == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.Format(versionLayout), s))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("migration already exists: %s", path)
		}
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, sqlTemplate, s); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
