package aigen

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/users"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/db/dbtest"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

func newService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()

	wallets, err := wallet.NewService(wallet.NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Tx:      client,
		Wallets: wallets,
		Ledger:  ledgerSvc,
		Cost:    decimal.NewFromInt(5000),
		Logger:  logger.New(logger.Options{ServiceName: "aigen-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, client
}

func aiTransactions(t *testing.T, client *db.Client) []models.Transaction {
	t.Helper()
	var rows []models.Transaction
	require.NoError(t, client.DB().Where("type = ?", enums.TransactionTypeAIGeneration).Order("created_at").Find(&rows).Error)
	return rows
}

func TestChargeDebitsAndRecordsCompletedTransaction(t *testing.T) {
	svc, client := newService(t)
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)
	w := dbtest.SeedWallet(t, client.DB(), user.ID, "12000")
	imageID := uuid.New()

	charge, err := svc.Charge(context.Background(), user.ID, imageID)
	require.NoError(t, err)
	require.Equal(t, imageID, charge.ImageID)
	require.True(t, charge.Balance.Equal(decimal.NewFromInt(7000)))
	require.True(t, dbtest.Balance(t, client.DB(), w.ID).Equal(decimal.NewFromInt(7000)))

	rows := aiTransactions(t, client)
	require.Len(t, rows, 1)
	require.Equal(t, enums.TransactionStatusCompleted, rows[0].Status)
	require.NotNil(t, rows[0].AIImageID)
	require.Equal(t, imageID, *rows[0].AIImageID)
}

func TestChargeWithoutWalletLeavesFailedAuditRow(t *testing.T) {
	svc, client := newService(t)
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)

	_, err := svc.Charge(context.Background(), user.ID, uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	rows := aiTransactions(t, client)
	require.Len(t, rows, 1)
	require.Equal(t, enums.TransactionStatusFailed, rows[0].Status)
	require.Nil(t, rows[0].WalletID)
}

func TestChargeWithInsufficientFundsLeavesFailedAuditRow(t *testing.T) {
	svc, client := newService(t)
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)
	w := dbtest.SeedWallet(t, client.DB(), user.ID, "4999")

	_, err := svc.Charge(context.Background(), user.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient), "got %v", err)
	require.True(t, dbtest.Balance(t, client.DB(), w.ID).Equal(decimal.NewFromInt(4999)))

	rows := aiTransactions(t, client)
	require.Len(t, rows, 1)
	require.Equal(t, enums.TransactionStatusFailed, rows[0].Status)
	require.NotNil(t, rows[0].WalletID)
	require.Equal(t, w.ID, *rows[0].WalletID)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	svc, client := newService(t)
	require.True(t, svc.Cost().Equal(decimal.NewFromInt(5000)))

	conn := client.DB()
	wallets, err := wallet.NewService(wallet.NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "aigen-test", Output: io.Discard})

	_, err = NewService(ServiceParams{Tx: client, Wallets: wallets, Ledger: ledgerSvc, Cost: decimal.Zero, Logger: logg})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Wallets: wallets, Ledger: ledgerSvc, Cost: decimal.NewFromInt(1), Logger: logg})
	require.Error(t, err)
}
