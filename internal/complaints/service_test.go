package complaints

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cakeverse/cakeverse-backend/internal/catalog"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/orders"
	"github.com/cakeverse/cakeverse-backend/internal/shops"
	"github.com/cakeverse/cakeverse-backend/internal/users"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	"github.com/cakeverse/cakeverse-backend/pkg/auth"
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
	client   *db.Client
	orders   orders.Service
	svc      Service
	customer models.User
	owner    models.User
	staff    models.User
	shop     models.Shop
	wallet   models.Wallet
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "complaints-test", Output: io.Discard})
	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.NewRegistry())
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	wallets, err := wallet.NewService(wallet.NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)

	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Tx:      client,
		Outbox:  publisher,
		Wallets: wallets,
		Ledger:  ledgerSvc,
		Catalog: catalog.NewRepository(conn),
		Shops:   shops.NewRepository(conn),
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Orders:      orderRepo,
		Transitions: orderSvc,
		Tx:          client,
		Outbox:      publisher,
		Metrics:     ledgerMetrics,
		Logger:      logg,
	})
	require.NoError(t, err)

	f := &fixture{client: client, orders: orderSvc, svc: svc}
	f.customer = dbtest.SeedUser(t, conn, enums.RoleCustomer)
	f.owner = dbtest.SeedUser(t, conn, enums.RoleShopOwner)
	f.staff = dbtest.SeedUser(t, conn, enums.RoleStaff)
	f.shop = dbtest.SeedShop(t, conn, f.owner.ID)
	f.wallet = dbtest.SeedWallet(t, conn, f.customer.ID, balance)
	return f
}

func (f *fixture) customerActor() auth.Actor {
	return auth.Actor{UserID: f.customer.ID, Role: enums.RoleCustomer}
}

// placeOrder creates an order priced at total and optionally pays for it.
func (f *fixture) placeOrder(t *testing.T, total int64, pay bool) *models.CakeOrder {
	t.Helper()
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerID: f.customer.ID,
		ShopID:     f.shop.ID,
		BasePrice:  decimal.NewFromInt(total),
		Size:       "10 inch",
	})
	require.NoError(t, err)
	if pay {
		_, err = f.orders.PayOrder(ctx, order.ID, f.customerActor())
		require.NoError(t, err)
	}
	return order
}

func (f *fixture) advance(t *testing.T, orderID uuid.UUID, targets ...enums.OrderStatus) {
	t.Helper()
	owner := auth.Actor{UserID: f.owner.ID, Role: enums.RoleShopOwner}
	for _, target := range targets {
		_, err := f.orders.Transition(context.Background(), orders.TransitionInput{OrderID: orderID, Target: target, Actor: owner})
		require.NoError(t, err, "advance to %s", target)
	}
}

func (f *fixture) setDeliveryTime(t *testing.T, orderID uuid.UUID, at *time.Time) {
	t.Helper()
	require.NoError(t, f.client.DB().Model(&models.CakeOrder{}).Where("id = ?", orderID).Update("delivery_time", at).Error)
}

func (f *fixture) orderStatus(t *testing.T, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.CakeOrder
	require.NoError(t, f.client.DB().First(&order, "id = ?", orderID).Error)
	return order.Status
}

func (f *fixture) payment(t *testing.T, orderID uuid.UUID) models.Transaction {
	t.Helper()
	var txn models.Transaction
	require.NoError(t, f.client.DB().
		Where("order_id = ? AND type = ?", orderID, enums.TransactionTypeOrderPayment).
		First(&txn).Error)
	return txn
}

func (f *fixture) file(orderID uuid.UUID) (*models.Complaint, error) {
	return f.svc.FileComplaint(context.Background(), FileInput{
		OrderID:  orderID,
		UserID:   f.customer.ID,
		Reason:   "the cake arrived melted",
		Evidence: []string{"https://cdn.cakeverse.test/melted.jpg", "  "},
	})
}

func requireBalance(t *testing.T, f *fixture, want int64) {
	t.Helper()
	got := dbtest.Balance(t, f.client.DB(), f.wallet.ID)
	require.True(t, got.Equal(decimal.NewFromInt(want)), "expected balance %d, got %s", want, got)
}

func TestComplaintApprovalRefundsPaidOrder(t *testing.T) {
	f := newFixture(t, "500000")
	ctx := context.Background()

	order := f.placeOrder(t, 200000, true)
	requireBalance(t, f, 300000)
	f.advance(t, order.ID, enums.OrderStatusOrdered, enums.OrderStatusPrepared, enums.OrderStatusShipped)

	complaint, err := f.file(order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ComplaintStatusPending, complaint.Status)
	require.Len(t, complaint.Evidence, 1)
	require.Equal(t, enums.OrderStatusComplaining, f.orderStatus(t, order.ID))

	approved, err := f.svc.Approve(ctx, complaint.ID, f.staff.ID, "confirmed from photos")
	require.NoError(t, err)
	require.Equal(t, enums.ComplaintStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	require.Equal(t, f.staff.ID, *approved.ProcessedBy)

	requireBalance(t, f, 500000)
	require.Equal(t, enums.OrderStatusCancelled, f.orderStatus(t, order.ID))
	payment := f.payment(t, order.ID)
	require.Equal(t, enums.TransactionStatusFailed, payment.Status)
	require.True(t, strings.HasPrefix(payment.Description, "refunded"), payment.Description)

	_, err = f.svc.Approve(ctx, complaint.ID, f.staff.ID, "again")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	requireBalance(t, f, 500000)
}

func TestComplaintRejectionCompletesOrder(t *testing.T) {
	f := newFixture(t, "500000")

	order := f.placeOrder(t, 200000, true)
	f.advance(t, order.ID, enums.OrderStatusOrdered, enums.OrderStatusPrepared, enums.OrderStatusShipped)
	complaint, err := f.file(order.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), complaint.ID, f.staff.ID, "no evidence of damage")
	require.NoError(t, err)
	require.Equal(t, enums.ComplaintStatusRejected, rejected.Status)
	require.Equal(t, "no evidence of damage", *rejected.AdminNote)

	requireBalance(t, f, 300000)
	require.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))
	require.Equal(t, enums.TransactionStatusCompleted, f.payment(t, order.ID).Status)
}

func TestApproveWithoutPaymentRollsBack(t *testing.T) {
	f := newFixture(t, "500000")

	order := f.placeOrder(t, 200000, false)
	f.advance(t, order.ID, enums.OrderStatusOrdered, enums.OrderStatusPrepared, enums.OrderStatusShipped)
	complaint, err := f.file(order.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), complaint.ID, f.staff.ID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	require.Equal(t, enums.OrderStatusComplaining, f.orderStatus(t, order.ID))
	stored, err := f.svc.Get(context.Background(), complaint.ID, f.customerActor())
	require.NoError(t, err)
	require.Equal(t, enums.ComplaintStatusPending, stored.Status)
	requireBalance(t, f, 500000)
}

func TestFileComplaintEligibility(t *testing.T) {
	f := newFixture(t, "500000")

	pending := f.placeOrder(t, 1000, false)
	_, err := f.file(pending.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "pending order: %v", err)

	ordered := f.placeOrder(t, 1000, false)
	f.advance(t, ordered.ID, enums.OrderStatusOrdered)

	_, err = f.file(ordered.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTooEarly), "no delivery time: %v", err)

	future := time.Now().UTC().Add(time.Hour)
	f.setDeliveryTime(t, ordered.ID, &future)
	_, err = f.file(ordered.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTooEarly), "future delivery time: %v", err)

	past := time.Now().UTC().Add(-time.Minute)
	f.setDeliveryTime(t, ordered.ID, &past)
	_, err = f.svc.FileComplaint(context.Background(), FileInput{OrderID: ordered.ID, UserID: f.owner.ID, Reason: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "stranger: %v", err)

	complaint, err := f.file(ordered.ID)
	require.NoError(t, err)
	require.Equal(t, ordered.ID, complaint.OrderID)

	_, err = f.file(ordered.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "second complaint: %v", err)

	_, err = f.svc.FileComplaint(context.Background(), FileInput{OrderID: ordered.ID, UserID: f.customer.ID, Reason: " "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckEligibilityBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := now
	order := &models.CakeOrder{Status: enums.OrderStatusPrepared, DeliveryTime: &at}
	require.True(t, pkgerrors.IsCode(checkEligibility(order, now), pkgerrors.CodeTooEarly))

	before := now.Add(-time.Nanosecond)
	order.DeliveryTime = &before
	require.NoError(t, checkEligibility(order, now))

	require.NoError(t, checkEligibility(&models.CakeOrder{Status: enums.OrderStatusShipped}, now))
	require.True(t, pkgerrors.IsCode(checkEligibility(&models.CakeOrder{Status: enums.OrderStatusCompleted}, now), pkgerrors.CodeStateConflict))
}

func TestListsAndVisibility(t *testing.T) {
	f := newFixture(t, "500000")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		order := f.placeOrder(t, 1000, true)
		f.advance(t, order.ID, enums.OrderStatusOrdered, enums.OrderStatusPrepared, enums.OrderStatusShipped)
		_, err := f.file(order.ID)
		require.NoError(t, err)
	}

	queue, err := f.svc.ListPending(ctx, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, queue.Complaints, 1)
	require.NotEmpty(t, queue.NextCursor)

	rest, err := f.svc.ListPending(ctx, pagination.Params{Limit: 1, Cursor: queue.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Complaints, 1)
	require.NotEqual(t, queue.Complaints[0].ID, rest.Complaints[0].ID)

	mine, err := f.svc.ListForUser(ctx, f.customer.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, mine.Complaints, 2)

	id := mine.Complaints[0].ID
	_, err = f.svc.Get(ctx, id, auth.Actor{UserID: f.staff.ID, Role: enums.RoleStaff})
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, id, auth.Actor{UserID: f.owner.ID, Role: enums.RoleShopOwner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
