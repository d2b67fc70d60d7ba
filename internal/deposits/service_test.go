package deposits

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
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
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

type fixture struct {
	client *db.Client
	svc    Service
	user   models.User
	codes  []int64
}

func newFixture(t *testing.T, codes ...int64) *fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "deposits-test", Output: io.Discard})

	wallets, err := wallet.NewService(wallet.NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)

	f := &fixture{client: client, codes: codes}
	params := ServiceParams{
		Repo:    NewRepository(conn),
		Tx:      client,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logg),
		Wallets: wallets,
		Ledger:  ledgerSvc,
		Metrics: metrics.NewLedgerMetrics(prometheus.NewRegistry()),
		Logger:  logg,
	}
	if len(codes) > 0 {
		params.CodeGenerator = func() int64 {
			next := f.codes[0]
			if len(f.codes) > 1 {
				f.codes = f.codes[1:]
			}
			return next
		}
	}
	f.svc, err = NewService(params)
	require.NoError(t, err)
	f.user = dbtest.SeedUser(t, conn, enums.RoleCustomer)
	return f
}

func (f *fixture) walletBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	var w models.Wallet
	require.NoError(t, f.client.DB().First(&w, "user_id = ?", f.user.ID).Error)
	return w.Balance
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.DepositRecord {
	t.Helper()
	var record models.DepositRecord
	require.NoError(t, f.client.DB().First(&record, "id = ?", id).Error)
	return record
}

func success(code int64, amount string) Notification {
	return Notification{OrderCode: code, Amount: decimal.RequireFromString(amount), Successful: true}
}

func TestRequestDepositCreatesPendingRecordAndWallet(t *testing.T) {
	f := newFixture(t, 1001)
	ctx := context.Background()

	record, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(100000))
	require.NoError(t, err)
	require.Equal(t, int64(1001), record.Code)
	require.Equal(t, enums.DepositStatusPending, record.Status)
	require.True(t, f.walletBalance(t).IsZero())

	_, err = f.svc.RequestDeposit(ctx, f.user.ID, decimal.Zero)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRequestDepositRetriesOnCodeCollision(t *testing.T) {
	f := newFixture(t, 7, 7, 8)
	ctx := context.Background()

	first, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	second, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.Equal(t, int64(7), first.Code)
	require.Equal(t, int64(8), second.Code)
}

func TestHandleGatewayNotificationCreditsExactlyOnce(t *testing.T) {
	f := newFixture(t, 555)
	ctx := context.Background()

	record, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(100000))
	require.NoError(t, err)

	outcome, err := f.svc.HandleGatewayNotification(ctx, success(555, "100000"))
	require.NoError(t, err)
	require.Equal(t, OutcomeCredited, outcome)

	outcome, err = f.svc.HandleGatewayNotification(ctx, success(555, "100000"))
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, outcome)

	require.True(t, f.walletBalance(t).Equal(decimal.NewFromInt(100000)))
	stored := f.reload(t, record.ID)
	require.Equal(t, enums.DepositStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	var txns []models.Transaction
	require.NoError(t, f.client.DB().Where("type = ?", enums.TransactionTypeDeposit).Find(&txns).Error)
	require.Len(t, txns, 1)
	require.Equal(t, enums.TransactionStatusCompleted, txns[0].Status)

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventDepositCompleted).Count(&events).Error)
	require.Equal(t, int64(1), events)
}

func TestHandleGatewayNotificationRejectsAmountMismatch(t *testing.T) {
	f := newFixture(t, 42)
	ctx := context.Background()

	record, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(100000))
	require.NoError(t, err)

	_, err = f.svc.HandleGatewayNotification(ctx, success(42, "99999"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAmountMismatch), "got %v", err)
	require.Equal(t, enums.DepositStatusPending, f.reload(t, record.ID).Status)
	require.True(t, f.walletBalance(t).IsZero())
}

func TestHandleGatewayNotificationEdgeCases(t *testing.T) {
	f := newFixture(t, 900)
	ctx := context.Background()

	outcome, err := f.svc.HandleGatewayNotification(ctx, Notification{Probe: true})
	require.NoError(t, err)
	require.Equal(t, OutcomeProbe, outcome)

	_, err = f.svc.HandleGatewayNotification(ctx, success(123456, "1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	record, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(5000))
	require.NoError(t, err)

	outcome, err = f.svc.HandleGatewayNotification(ctx, Notification{OrderCode: 900, Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	require.Equal(t, OutcomeCancelled, outcome)
	require.Equal(t, enums.DepositStatusCancelled, f.reload(t, record.ID).Status)

	outcome, err = f.svc.HandleGatewayNotification(ctx, Notification{OrderCode: 900, Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, outcome)

	_, err = f.svc.HandleGatewayNotification(ctx, success(900, "5000"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.True(t, f.walletBalance(t).IsZero())
}

func TestCancelDepositRequiresOwnerAndPending(t *testing.T) {
	f := newFixture(t, 31, 32)
	ctx := context.Background()

	record, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = f.svc.CancelDeposit(ctx, record.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.CancelDeposit(ctx, record.ID, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DepositStatusCancelled, cancelled.Status)

	_, err = f.svc.CancelDeposit(ctx, record.ID, f.user.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestAttachCheckoutURLAndList(t *testing.T) {
	f := newFixture(t, 61, 62, 63)
	ctx := context.Background()

	first, err := f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(2000))
	require.NoError(t, err)
	_, err = f.svc.RequestDeposit(ctx, f.user.ID, decimal.NewFromInt(3000))
	require.NoError(t, err)

	updated, err := f.svc.AttachCheckoutURL(ctx, first.ID, "https://pay.example/61")
	require.NoError(t, err)
	require.NotNil(t, updated.CheckoutURL)
	require.Equal(t, "https://pay.example/61", *updated.CheckoutURL)

	page, err := f.svc.ListForUser(ctx, f.user.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Deposits, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListForUser(ctx, f.user.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Deposits, 1)
	require.Empty(t, rest.NextCursor)
}
