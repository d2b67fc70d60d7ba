package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cakeverse/cakeverse-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestLedgerMigrationsCarryMoneyConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_wallets_and_transactions": {
			"CONSTRAINT ck_wallets_balance_non_negative CHECK (balance >= 0)",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_wallets_user_id ON wallets (user_id)",
			"amount numeric(14,2) NOT NULL CHECK (amount > 0)",
			"DROP TABLE IF EXISTS transactions",
		},
		"create_deposit_and_withdraw_records": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_deposit_records_code ON deposit_records (code)",
			"transaction_id uuid NULL",
			"DROP TABLE IF EXISTS withdraw_records",
		},
		"create_complaints": {
			"ux_complaints_order_pending ON complaints (order_id) WHERE status = 'pending'",
		},
		"create_cake_orders": {
			"'pending', 'ordered', 'prepared', 'shipped', 'completed', 'complaining', 'cancelled'",
			"FOREIGN KEY (order_id) REFERENCES cake_orders(id) ON DELETE CASCADE",
		},
	}
	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Fees!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payout_fees.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration invalid: %v", err)
	}
}
