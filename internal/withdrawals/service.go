package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
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

type auditLedger interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.Transaction, error)
	Complete(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error
	Fail(ctx context.Context, tx *gorm.DB, txnID uuid.UUID, description string) error
}

// Service holds wallet funds for payout requests until an administrator
// settles or rejects them.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.WithdrawRecord, error)
	Confirm(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (*models.WithdrawRecord, error)
	Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (*models.WithdrawRecord, error)
	Cancel(ctx context.Context, withdrawalID, userID uuid.UUID) (*models.WithdrawRecord, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WithdrawalList, error)
	ListPending(ctx context.Context, params pagination.Params) (*WithdrawalList, error)
}

type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Wallets walletMover
	Ledger  auditLedger
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	wallets walletMover
	ledger  auditLedger
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
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
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		wallets: params.Wallets,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.WithdrawRecord, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	bank := strings.TrimSpace(input.BankName)
	account := strings.TrimSpace(input.AccountNumber)
	holder := strings.TrimSpace(input.AccountHolder)
	if bank == "" || account == "" || holder == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank name, account number and account holder are required")
	}

	var record *models.WithdrawRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		wallet, err := s.wallets.LockForUser(ctx, tx, input.UserID)
		if err != nil {
			return err
		}
		if _, err := s.wallets.Debit(ctx, tx, wallet.ID, input.Amount); err != nil {
			return err
		}
		walletID := wallet.ID
		txn, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			WalletID:    &walletID,
			Amount:      input.Amount,
			Type:        enums.TransactionTypeWithdrawal,
			Status:      enums.TransactionStatusPending,
			Description: fmt.Sprintf("withdrawal to %s", bank),
		})
		if err != nil {
			return err
		}

		txnID := txn.ID
		record = &models.WithdrawRecord{
			UserID:        input.UserID,
			WalletID:      wallet.ID,
			TransactionID: &txnID,
			Amount:        input.Amount,
			BankName:      bank,
			AccountNumber: account,
			AccountHolder: holder,
			Status:        enums.WithdrawStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalRequested,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   record.ID,
			Data: WithdrawalRequestedEvent{
				WithdrawalID:  record.ID,
				UserID:        input.UserID,
				Amount:        input.Amount,
				TransactionID: txn.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMovement(string(enums.TransactionTypeWithdrawal), metrics.DirectionDebit, input.Amount)
	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, input.UserID.String()), map[string]any{
		"withdrawal_id": record.ID.String(),
		"amount":        input.Amount.StringFixed(2),
	})
	s.logg.Info(logCtx, "withdrawal requested")
	return record, nil
}

func (s *service) Confirm(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (*models.WithdrawRecord, error) {
	return s.resolve(ctx, resolution{
		withdrawalID: withdrawalID,
		actorID:      adminID,
		target:       enums.WithdrawStatusCompleted,
		note:         note,
	})
}

func (s *service) Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (*models.WithdrawRecord, error) {
	return s.resolve(ctx, resolution{
		withdrawalID: withdrawalID,
		actorID:      adminID,
		target:       enums.WithdrawStatusFailed,
		note:         note,
		refund:       true,
	})
}

func (s *service) Cancel(ctx context.Context, withdrawalID, userID uuid.UUID) (*models.WithdrawRecord, error) {
	return s.resolve(ctx, resolution{
		withdrawalID: withdrawalID,
		actorID:      userID,
		target:       enums.WithdrawStatusCancelled,
		refund:       true,
		ownerOnly:    true,
	})
}

type resolution struct {
	withdrawalID uuid.UUID
	actorID      uuid.UUID
	target       enums.WithdrawStatus
	note         string
	refund       bool
	ownerOnly    bool
}

func (s *service) resolve(ctx context.Context, r resolution) (*models.WithdrawRecord, error) {
	if r.withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if r.actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var record *models.WithdrawRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByID(ctx, r.withdrawalID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock withdrawal")
		}
		if r.ownerOnly && locked.UserID != r.actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal does not belong to user")
		}
		if locked.Status != enums.WithdrawStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed").
				WithDetails(map[string]any{"status": locked.Status})
		}

		now := s.now()
		updates := map[string]any{
			"processed_at": now,
			"processed_by": r.actorID,
			"updated_at":   now,
		}
		note := strings.TrimSpace(r.note)
		if note != "" {
			updates["admin_note"] = note
		}
		affected, err := repo.UpdateStatus(ctx, locked.ID, enums.WithdrawStatusPending, r.target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed")
		}

		if r.refund {
			if _, err := s.wallets.Credit(ctx, tx, locked.WalletID, locked.Amount); err != nil {
				return err
			}
		}
		if locked.TransactionID != nil {
			if r.refund {
				err = s.ledger.Fail(ctx, tx, *locked.TransactionID, fmt.Sprintf("withdrawal %s", r.target))
			} else {
				err = s.ledger.Complete(ctx, tx, *locked.TransactionID)
			}
			if err != nil {
				return err
			}
		}

		locked.Status = r.target
		locked.ProcessedAt = &now
		actorID := r.actorID
		locked.ProcessedBy = &actorID
		if note != "" {
			locked.AdminNote = &note
		}
		locked.UpdatedAt = now
		record = locked

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalResolved,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   locked.ID,
			OccurredAt:    now,
			Data: WithdrawalResolvedEvent{
				WithdrawalID: locked.ID,
				UserID:       locked.UserID,
				Amount:       locked.Amount,
				Status:       r.target,
				ProcessedBy:  r.actorID,
				Refunded:     r.refund,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if r.refund {
		s.metrics.ObserveMovement(string(enums.TransactionTypeWithdrawal), metrics.DirectionCredit, record.Amount)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"withdrawal_id": record.ID.String(),
		"status":        string(record.Status),
		"processed_by":  r.actorID.String(),
	})
	s.logg.Info(logCtx, "withdrawal resolved")
	return record, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WithdrawalList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return newWithdrawalList(rows, next), nil
}

func (s *service) ListPending(ctx context.Context, params pagination.Params) (*WithdrawalList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByStatus(ctx, enums.WithdrawStatusPending, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending withdrawals")
	}
	return newWithdrawalList(rows, next), nil
}

func newWithdrawalList(rows []models.WithdrawRecord, next *pagination.Cursor) *WithdrawalList {
	list := &WithdrawalList{Withdrawals: make([]WithdrawalView, 0, len(rows))}
	for _, row := range rows {
		list.Withdrawals = append(list.Withdrawals, NewWithdrawalView(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}
