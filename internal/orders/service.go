package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/internal/catalog"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/shops"
	"github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

const (
	defaultPendingDelay = 5 * time.Minute
	defaultShippedDelay = 2 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type walletMover interface {
	LockForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type paymentLedger interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.Transaction, error)
	PendingOrderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Transaction, error)
	HasLiveOrderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
	Fail(ctx context.Context, tx *gorm.DB, txnID uuid.UUID, description string) error
	SettleOrderPayments(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID) (int64, error)
}

type shopDirectory interface {
	Exists(ctx context.Context, shopID uuid.UUID) (bool, error)
	Owner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error)
}

// Service prices cake orders and moves them through their lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.CakeOrder, error)
	PayOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.Transaction, error)
	Transition(ctx context.Context, input TransitionInput) (*models.CakeOrder, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.CakeOrder, error)
	ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.CakeOrder, change StatusChange) (TransitionEffects, error)
	AutoPromote(ctx context.Context, now time.Time) (AutoPromoteResult, error)
	PromotePending(ctx context.Context, now time.Time) (PromotionResult, error)
	CompleteShipped(ctx context.Context, now time.Time) (PromotionResult, error)
	Get(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.CakeOrder, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListForShop(ctx context.Context, actor auth.Actor, shopID uuid.UUID, params pagination.Params) (*OrderList, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Wallets      walletMover
	Ledger       paymentLedger
	Catalog      catalog.Repository
	Shops        shopDirectory
	Metrics      *metrics.LedgerMetrics
	Logger       *logger.Logger
	PendingDelay time.Duration
	ShippedDelay time.Duration
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxPublisher
	wallets      walletMover
	ledger       paymentLedger
	catalog      catalog.Repository
	shops        shopDirectory
	metrics      *metrics.LedgerMetrics
	logg         *logger.Logger
	pendingDelay time.Duration
	shippedDelay time.Duration
	now          func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("ingredient catalog required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop directory required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	pendingDelay := params.PendingDelay
	if pendingDelay <= 0 {
		pendingDelay = defaultPendingDelay
	}
	shippedDelay := params.ShippedDelay
	if shippedDelay <= 0 {
		shippedDelay = defaultShippedDelay
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		wallets:      params.Wallets,
		ledger:       params.Ledger,
		catalog:      params.Catalog,
		shops:        params.Shops,
		metrics:      params.Metrics,
		logg:         params.Logger,
		pendingDelay: pendingDelay,
		shippedDelay: shippedDelay,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.CakeOrder, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if input.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
	}
	lines, err := mergeLines(input.Lines)
	if err != nil {
		return nil, err
	}

	exists, err := s.shops.Exists(ctx, input.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check shop")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}

	var order *models.CakeOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.IngredientID)
		}
		prices, err := s.catalog.WithTx(tx).UnitPrices(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient prices")
		}

		details := make([]models.OrderDetail, 0, len(lines))
		ingredientTotal := decimal.Zero
		for _, line := range lines {
			price, ok := prices[line.IngredientID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
			}
			lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			ingredientTotal = ingredientTotal.Add(lineTotal)
			details = append(details, models.OrderDetail{
				IngredientID: line.IngredientID,
				Quantity:     line.Quantity,
				UnitPrice:    price,
				LineTotal:    lineTotal,
			})
		}

		total := input.BasePrice.Add(ingredientTotal)
		if !total.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "order total must be greater than zero")
		}

		order = &models.CakeOrder{
			CustomerID:          input.CustomerID,
			ShopID:              input.ShopID,
			ListingID:           input.ListingID,
			BasePrice:           input.BasePrice,
			IngredientTotal:     ingredientTotal,
			TotalPrice:          total,
			Size:                input.Size,
			Status:              enums.OrderStatusPending,
			SpecialInstructions: input.Instructions,
			DeliveryTime:        input.DeliveryTime,
			Details:             details,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateCakeOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID},
			Data: OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				ShopID:     order.ShopID,
				TotalPrice: order.TotalPrice,
				LineCount:  len(details),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"shop_id":     order.ShopID.String(),
		"total_price": order.TotalPrice.StringFixed(2),
	})
	s.logg.Info(logCtx, "cake order created")
	return order, nil
}

// mergeLines validates the requested lines and folds repeated ingredients
// into one line, keeping first-seen order.
func mergeLines(lines []LineInput) ([]LineInput, error) {
	merged := make([]LineInput, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.IngredientID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
		}
		if i, ok := index[line.IngredientID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.IngredientID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

func (s *service) PayOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.Transaction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var payment *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusOrdered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be paid in its current state").
				WithDetails(map[string]any{"status": order.Status})
		}
		paid, err := s.ledger.HasLiveOrderPayment(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if paid {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already paid")
		}

		wallet, err := s.wallets.LockForUser(ctx, tx, order.CustomerID)
		if err != nil {
			return err
		}
		if _, err := s.wallets.Debit(ctx, tx, wallet.ID, order.TotalPrice); err != nil {
			return err
		}

		walletID := wallet.ID
		payment, err = s.ledger.Record(ctx, tx, ledger.RecordInput{
			WalletID:    &walletID,
			OrderID:     &order.ID,
			Amount:      order.TotalPrice,
			Type:        enums.TransactionTypeOrderPayment,
			Status:      enums.TransactionStatusPending,
			Description: fmt.Sprintf("payment for cake order %s", order.ID),
		})
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateCakeOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: OrderPaidEvent{
				OrderID:       order.ID,
				CustomerID:    order.CustomerID,
				TransactionID: payment.ID,
				Amount:        payment.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMovement(string(enums.TransactionTypeOrderPayment), metrics.DirectionDebit, payment.Amount)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"transaction_id": payment.ID.String(),
		"amount":         payment.Amount.StringFixed(2),
	})
	s.logg.Info(logCtx, "cake order paid")
	return payment, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.CakeOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	current, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	// Shop ownership never changes, so it is resolved once against the plain read.
	owner := false
	if input.Actor.Can(enums.CapabilityManageShop) {
		if owner, err = s.ownsShop(ctx, current.ShopID, input.Actor.UserID); err != nil {
			return nil, err
		}
	}
	if err := authorize(current, input.Target, input.Actor, owner); err != nil {
		return nil, err
	}

	var (
		order   *models.CakeOrder
		from    enums.OrderStatus
		effects TransitionEffects
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(locked, input.Target, input.Actor, owner); err != nil {
			return err
		}
		from = locked.Status
		effects, err = s.ApplyTransition(ctx, tx, locked, StatusChange{
			Target:     input.Target,
			ActorID:    input.Actor.UserID,
			Now:        s.now(),
			Source:     SourceManual,
			RefundNote: fmt.Sprintf("refunded: cake order %s cancelled", locked.ID),
		})
		order = locked
		return err
	})
	if err != nil {
		return nil, err
	}

	if effects.Refunded.IsPositive() {
		s.metrics.ObserveMovement(string(enums.TransactionTypeRefund), metrics.DirectionCredit, effects.Refunded)
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"from":     from,
		"to":       order.Status,
		"refunded": effects.Refunded.StringFixed(2),
	})
	s.logg.Info(logCtx, "cake order status changed")
	return order, nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.CakeOrder, error) {
	return s.Transition(ctx, TransitionInput{OrderID: orderID, Target: enums.OrderStatusCancelled, Actor: actor})
}

// authorize decides who may request a move from the order's status as read.
// Complaint review owns every move into or out of complaining.
func authorize(order *models.CakeOrder, target enums.OrderStatus, actor auth.Actor, shopOwner bool) error {
	if order.Status == enums.OrderStatusComplaining || target == enums.OrderStatusComplaining {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is handled by complaint review")
	}

	if actor.UserID == order.CustomerID {
		switch {
		case target == enums.OrderStatusCancelled &&
			(order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusOrdered):
			return nil
		case target == enums.OrderStatusCompleted && order.Status == enums.OrderStatusShipped:
			return nil
		}
	}

	if shopOwner && target != enums.OrderStatusCompleted {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to move this order")
}

func (s *service) ownsShop(ctx context.Context, shopID, userID uuid.UUID) (bool, error) {
	owner, err := s.shops.Owner(ctx, shopID)
	if errors.Is(err, shops.ErrNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop owner")
	}
	return owner == userID, nil
}

// ApplyTransition moves an order that the caller has already locked inside
// tx. Completing settles the pending payment; cancelling refunds it.
func (s *service) ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.CakeOrder, change StatusChange) (TransitionEffects, error) {
	effects := TransitionEffects{Refunded: decimal.Zero}
	if tx == nil {
		return effects, pkgerrors.New(pkgerrors.CodeInternal, "atomic unit required")
	}
	if order == nil {
		return effects, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}

	from := order.Status
	if !from.CanTransitionTo(change.Target) {
		return effects, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid transition").
			WithDetails(map[string]any{"from": from, "to": change.Target})
	}

	now := change.Now
	if now.IsZero() {
		now = s.now()
	}
	updates := map[string]any{"updated_at": now}
	if change.Target == enums.OrderStatusShipped {
		updates["shipped_at"] = now
	}
	affected, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, change.Target, updates)
	if err != nil {
		return effects, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected == 0 {
		return effects, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	switch change.Target {
	case enums.OrderStatusCompleted:
		settled, err := s.ledger.SettleOrderPayments(ctx, tx, []uuid.UUID{order.ID})
		if err != nil {
			return effects, err
		}
		effects.Settled = settled
	case enums.OrderStatusCancelled:
		refunded, err := s.refund(ctx, tx, order, change)
		if err != nil {
			return effects, err
		}
		effects.Refunded = refunded
	}

	order.Status = change.Target
	order.UpdatedAt = now
	if change.Target == enums.OrderStatusShipped {
		shippedAt := now
		order.ShippedAt = &shippedAt
	}

	event := OrderStatusChangedEvent{
		OrderID: order.ID,
		ShopID:  order.ShopID,
		From:    from,
		To:      change.Target,
		Source:  change.Source,
	}
	if effects.Refunded.IsPositive() {
		refunded := effects.Refunded
		event.Refunded = &refunded
	}
	var actor *outbox.ActorRef
	if change.ActorID != uuid.Nil {
		actor = &outbox.ActorRef{UserID: change.ActorID}
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateCakeOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    now,
		Data:          event,
	}); err != nil {
		return effects, err
	}
	return effects, nil
}

func (s *service) refund(ctx context.Context, tx *gorm.DB, order *models.CakeOrder, change StatusChange) (decimal.Decimal, error) {
	payment, err := s.ledger.PendingOrderPayment(ctx, tx, order.ID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) && !change.RequirePayment {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	wallet, err := s.wallets.LockForUser(ctx, tx, order.CustomerID)
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := s.wallets.Credit(ctx, tx, wallet.ID, order.TotalPrice); err != nil {
		return decimal.Zero, err
	}

	note := change.RefundNote
	if note == "" {
		note = fmt.Sprintf("refunded: cake order %s cancelled", order.ID)
	}
	if err := s.ledger.Fail(ctx, tx, payment.ID, note); err != nil {
		return decimal.Zero, err
	}
	return order.TotalPrice, nil
}

// AutoPromote runs both scheduler passes against the same instant.
func (s *service) AutoPromote(ctx context.Context, now time.Time) (AutoPromoteResult, error) {
	var result AutoPromoteResult
	ordered, pendingErr := s.PromotePending(ctx, now)
	result.Ordered = ordered
	completed, shippedErr := s.CompleteShipped(ctx, now)
	result.Completed = completed
	return result, multierr.Combine(pendingErr, shippedErr)
}

// PromotePending moves orders that have sat in pending for the configured
// delay to ordered.
func (s *service) PromotePending(ctx context.Context, now time.Time) (PromotionResult, error) {
	now = now.UTC()
	cutoff := now.Add(-s.pendingDelay)

	var result PromotionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		due, err := repo.PendingCreatedBefore(ctx, cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find pending orders")
		}
		if len(due) == 0 {
			return nil
		}
		promoted, err := repo.BulkUpdateStatus(ctx, orderIDs(due), enums.OrderStatusPending, enums.OrderStatusOrdered, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote pending orders")
		}
		result.Promoted = promoted
		return s.emitBulk(ctx, tx, due, enums.OrderStatusOrdered, now)
	})
	if err != nil {
		return PromotionResult{}, err
	}
	return result, nil
}

// CompleteShipped completes orders that have not changed for the configured
// delay after shipping and settles their payments.
func (s *service) CompleteShipped(ctx context.Context, now time.Time) (PromotionResult, error) {
	now = now.UTC()
	cutoff := now.Add(-s.shippedDelay)

	var result PromotionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		due, err := repo.ShippedUpdatedBefore(ctx, cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find shipped orders")
		}
		if len(due) == 0 {
			return nil
		}
		ids := orderIDs(due)
		completed, err := repo.BulkUpdateStatus(ctx, ids, enums.OrderStatusShipped, enums.OrderStatusCompleted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete shipped orders")
		}
		result.Promoted = completed
		settled, err := s.ledger.SettleOrderPayments(ctx, tx, ids)
		if err != nil {
			return err
		}
		result.Settled = settled
		return s.emitBulk(ctx, tx, due, enums.OrderStatusCompleted, now)
	})
	if err != nil {
		return PromotionResult{}, err
	}
	return result, nil
}

func (s *service) emitBulk(ctx context.Context, tx *gorm.DB, moved []models.CakeOrder, to enums.OrderStatus, now time.Time) error {
	for _, order := range moved {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateCakeOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: OrderStatusChangedEvent{
				OrderID: order.ID,
				ShopID:  order.ShopID,
				From:    order.Status,
				To:      to,
				Source:  SourceScheduler,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*models.CakeOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == order.CustomerID || actor.Can(enums.CapabilityResolveComplaints) {
		return order, nil
	}
	if actor.Can(enums.CapabilityManageShop) {
		owns, err := s.ownsShop(ctx, order.ShopID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if owns {
			return order, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to user")
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByCustomer(ctx, customerID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return buildList(rows, next), nil
}

func (s *service) ListForShop(ctx context.Context, actor auth.Actor, shopID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if !actor.Can(enums.CapabilityManageShop) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop access required")
	}
	owns, err := s.ownsShop(ctx, shopID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop does not belong to user")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByShop(ctx, shopID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop orders")
	}
	return buildList(rows, next), nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.CakeOrder, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.CakeOrder, error) {
	order, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

func buildList(rows []models.CakeOrder, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: make([]OrderView, 0, len(rows))}
	for _, row := range rows {
		list.Orders = append(list.Orders, NewOrderView(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

func orderIDs(rows []models.CakeOrder) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
