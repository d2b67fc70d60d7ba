package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAtRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := createAt(dir, "Withdraw fee", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120000_withdraw_fee.sql"), path)

	_, err = createAt(dir, "withdraw  fee", now)
	require.ErrorContains(t, err, "already exists")

	_, err = createAt(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateFSRejectsBadMigrations(t *testing.T) {
	good := "-- +goose Up\nCREATE TABLE a (id int);\n-- +goose Down\nDROP TABLE a;\n"
	cases := map[string]fstest.MapFS{
		"bad name":   {"1_init.sql": {Data: []byte(good)}},
		"no down":    {"20260101000000_init.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"empty down": {"20260101000000_init.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\n-- nothing\n")}},
		"down first": {"20260101000000_init.sql": {Data: []byte("-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n")}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, ValidateFS(fsys))
		})
	}

	require.NoError(t, ValidateFS(fstest.MapFS{
		"20260101000000_init.sql": {Data: []byte(good)},
		"README.md":               {Data: []byte("ignored")},
	}))
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded()))

	onDisk, err := os.ReadDir("migrations")
	require.NoError(t, err)
	for _, e := range onDisk {
		data, err := fs.ReadFile(Embedded(), e.Name())
		require.NoError(t, err, e.Name())
		require.NotEmpty(t, data)
	}
}
