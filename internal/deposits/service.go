package deposits

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	dbpkg "github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

const codeAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type walletService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	LockForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.Transaction, error)
}

// Service reconciles wallet top-ups with the payment gateway.
type Service interface {
	RequestDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.DepositRecord, error)
	AttachCheckoutURL(ctx context.Context, depositID uuid.UUID, url string) (*models.DepositRecord, error)
	HandleGatewayNotification(ctx context.Context, notification Notification) (Outcome, error)
	CancelDeposit(ctx context.Context, depositID, userID uuid.UUID) (*models.DepositRecord, error)
	Get(ctx context.Context, depositID, userID uuid.UUID) (*models.DepositRecord, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DepositList, error)
}

// ServiceParams wires the deposit service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Wallets walletService
	Ledger  ledgerRecorder
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
	// CodeGenerator overrides the gateway order code source.
	CodeGenerator func() int64
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	wallets walletService
	ledger  ledgerRecorder
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	newCode func() int64
	now     func() time.Time
}

// NewService builds the deposit service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("deposits repository required")
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
	newCode := params.CodeGenerator
	if newCode == nil {
		newCode = timeBasedCode
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		wallets: params.Wallets,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		logg:    params.Logger,
		newCode: newCode,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// timeBasedCode stays below 2^53 so the gateway can carry it as a JSON number.
func timeBasedCode() int64 {
	return time.Now().UnixMilli()*1000 + rand.Int63n(1000)
}

func (s *service) RequestDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.DepositRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if _, err := s.wallets.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		record := &models.DepositRecord{
			UserID: userID,
			Code:   s.newCode(),
			Amount: amount,
			Status: enums.DepositStatusPending,
		}
		err := s.repo.Create(ctx, record)
		if err == nil {
			logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{
				"deposit_id": record.ID.String(),
				"code":       record.Code,
				"amount":     amount.StringFixed(2),
			})
			s.logg.Info(logCtx, "deposit requested")
			return record, nil
		}
		if !dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate deposit code")
}

func (s *service) AttachCheckoutURL(ctx context.Context, depositID uuid.UUID, url string) (*models.DepositRecord, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout url required")
	}
	affected, err := s.repo.SetCheckoutURL(ctx, depositID, url)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout url")
	}
	record, err := s.find(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is no longer pending")
	}
	return record, nil
}

func (s *service) HandleGatewayNotification(ctx context.Context, n Notification) (outcome Outcome, err error) {
	defer func() {
		label := string(outcome)
		if err != nil {
			label = "error"
		}
		s.metrics.ObserveNotification(label)
	}()

	if n.Probe {
		return OutcomeProbe, nil
	}

	record, err := s.repo.FindByCode(ctx, n.OrderCode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeRejected, pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
	}
	if err != nil {
		return OutcomeRejected, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"deposit_id": record.ID.String(),
		"code":       record.Code,
		"successful": n.Successful,
	})

	if record.Status == enums.DepositStatusCompleted {
		s.logg.Info(logCtx, "deposit notification already applied")
		return OutcomeDuplicate, nil
	}

	if !n.Successful {
		affected, err := s.repo.UpdateStatus(ctx, record.ID, enums.DepositStatusPending, enums.DepositStatusCancelled,
			map[string]any{"updated_at": s.now()})
		if err != nil {
			return OutcomeRejected, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel deposit")
		}
		if affected == 0 {
			return OutcomeIgnored, nil
		}
		s.logg.Info(logCtx, "deposit cancelled by gateway")
		return OutcomeCancelled, nil
	}

	if !n.Amount.Equal(record.Amount) {
		s.logg.Warn(logCtx, "deposit amount mismatch")
		return OutcomeRejected, pkgerrors.New(pkgerrors.CodeAmountMismatch, "reported amount does not match deposit").
			WithDetails(map[string]any{
				"expected": record.Amount.StringFixed(2),
				"reported": n.Amount.StringFixed(2),
			})
	}

	credited := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).LockByID(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock deposit")
		}
		switch locked.Status {
		case enums.DepositStatusCompleted:
			return nil
		case enums.DepositStatusPending:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is no longer pending").
				WithDetails(map[string]any{"status": locked.Status})
		}

		now := s.now()
		affected, err := s.repo.WithTx(tx).UpdateStatus(ctx, locked.ID, enums.DepositStatusPending, enums.DepositStatusCompleted,
			map[string]any{"completed_at": now, "updated_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete deposit")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is no longer pending")
		}

		wallet, err := s.wallets.LockForUser(ctx, tx, locked.UserID)
		if err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, tx, wallet.ID, locked.Amount); err != nil {
			return err
		}
		walletID := wallet.ID
		txn, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			WalletID:    &walletID,
			Amount:      locked.Amount,
			Type:        enums.TransactionTypeDeposit,
			Status:      enums.TransactionStatusCompleted,
			Description: fmt.Sprintf("deposit %d", locked.Code),
		})
		if err != nil {
			return err
		}
		credited = true

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDepositCompleted,
			AggregateType: enums.AggregateDeposit,
			AggregateID:   locked.ID,
			OccurredAt:    now,
			Data: DepositCompletedEvent{
				DepositID:     locked.ID,
				UserID:        locked.UserID,
				Code:          locked.Code,
				Amount:        locked.Amount,
				TransactionID: txn.ID,
			},
		})
	})
	if err != nil {
		return OutcomeRejected, err
	}
	if !credited {
		return OutcomeDuplicate, nil
	}

	s.metrics.ObserveMovement(string(enums.TransactionTypeDeposit), metrics.DirectionCredit, record.Amount)
	s.logg.Info(logCtx, "deposit credited")
	return OutcomeCredited, nil
}

func (s *service) CancelDeposit(ctx context.Context, depositID, userID uuid.UUID) (*models.DepositRecord, error) {
	record, err := s.Get(ctx, depositID, userID)
	if err != nil {
		return nil, err
	}
	if record.Status != enums.DepositStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is no longer pending").
			WithDetails(map[string]any{"status": record.Status})
	}
	now := s.now()
	affected, err := s.repo.UpdateStatus(ctx, record.ID, enums.DepositStatusPending, enums.DepositStatusCancelled,
		map[string]any{"updated_at": now})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel deposit")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is no longer pending")
	}
	record.Status = enums.DepositStatusCancelled
	record.UpdatedAt = now
	return record, nil
}

func (s *service) Get(ctx context.Context, depositID, userID uuid.UUID) (*models.DepositRecord, error) {
	record, err := s.find(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "deposit does not belong to user")
	}
	return record, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DepositList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposits")
	}
	list := &DepositList{Deposits: make([]DepositView, 0, len(rows))}
	for _, row := range rows {
		list.Deposits = append(list.Deposits, NewDepositView(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) find(ctx context.Context, depositID uuid.UUID) (*models.DepositRecord, error) {
	if depositID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit id required")
	}
	record, err := s.repo.FindByID(ctx, depositID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
	}
	return record, nil
}
