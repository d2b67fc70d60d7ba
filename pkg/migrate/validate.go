package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks a migrations directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks filenames, unique versions and goose annotations. Every
// migration must be reversible.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkAnnotations(name, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func checkAnnotations(name, body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	case down < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", name)
	}
	if strings.TrimSpace(stripComments(body[down+len("-- +goose Down"):])) == "" {
		return fmt.Errorf("migration %q has an empty Down section", name)
	}
	return nil
}

func stripComments(section string) string {
	var b strings.Builder
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
