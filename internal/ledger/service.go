package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// Service records and advances wallet transactions. Methods taking a tx run
// inside the caller's atomic unit; a nil tx writes directly.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.Transaction, error)
	PendingOrderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Transaction, error)
	HasLiveOrderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
	Complete(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error
	Fail(ctx context.Context, tx *gorm.DB, txnID uuid.UUID, description string) error
	SettleOrderPayments(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID) (int64, error)
	History(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

// RecordInput captures the data a transaction row requires.
type RecordInput struct {
	WalletID    *uuid.UUID
	OrderID     *uuid.UUID
	AIImageID   *uuid.UUID
	Amount      decimal.Decimal
	Type        enums.TransactionType
	Status      enums.TransactionStatus
	Description string
}

// HistoryPage is one page of a wallet's transactions, newest first.
type HistoryPage struct {
	Items  []models.Transaction `json:"items"`
	Cursor string               `json:"cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.Transaction, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", input.Status))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be greater than zero")
	}
	if input.Type == enums.TransactionTypeOrderPayment && input.OrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order payment requires an order id")
	}

	txn := &models.Transaction{
		WalletID:    input.WalletID,
		OrderID:     input.OrderID,
		AIImageID:   input.AIImageID,
		Amount:      input.Amount,
		Type:        input.Type,
		Status:      input.Status,
		Description: input.Description,
	}
	if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
	}
	return txn, nil
}

func (s *service) PendingOrderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.WithTx(tx).LockPendingOrderPayment(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order payment")
	}
	return txn, nil
}

func (s *service) HasLiveOrderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	count, err := s.repo.WithTx(tx).CountLiveOrderPayments(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order payments")
	}
	return count > 0, nil
}

func (s *service) Complete(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error {
	return s.advance(ctx, tx, txnID, enums.TransactionStatusCompleted, nil)
}

func (s *service) Fail(ctx context.Context, tx *gorm.DB, txnID uuid.UUID, description string) error {
	return s.advance(ctx, tx, txnID, enums.TransactionStatusFailed, &description)
}

func (s *service) advance(ctx context.Context, tx *gorm.DB, txnID uuid.UUID, to enums.TransactionStatus, description *string) error {
	affected, err := s.repo.WithTx(tx).UpdateStatus(ctx, txnID, enums.TransactionStatusPending, to, description)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction status")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is no longer pending")
	}
	return nil
}

func (s *service) SettleOrderPayments(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID) (int64, error) {
	settled, err := s.repo.WithTx(tx).SettlePendingOrderPayments(ctx, orderIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order payments")
	}
	return settled, nil
}

func (s *service) History(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByWallet(ctx, walletID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	page := &HistoryPage{Items: rows}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}
