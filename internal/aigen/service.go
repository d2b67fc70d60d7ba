package aigen

import (
	"context"
	"fmt"
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
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletService interface {
	ForUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	LockForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.Transaction, error)
}

// Charge is the outcome of a successful generation charge.
type Charge struct {
	ImageID     uuid.UUID       `json:"image_id"`
	Transaction uuid.UUID       `json:"transaction_id"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	ChargedAt   time.Time       `json:"charged_at"`
}

// Service bills image generations against the requester's wallet. Refused
// charges still leave a failed audit row behind.
type Service interface {
	Charge(ctx context.Context, userID, imageID uuid.UUID) (*Charge, error)
	Cost() decimal.Decimal
}

type ServiceParams struct {
	Tx      txRunner
	Wallets walletService
	Ledger  ledgerRecorder
	Cost    decimal.Decimal
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	wallets walletService
	ledger  ledgerRecorder
	cost    decimal.Decimal
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if !params.Cost.IsPositive() {
		return nil, fmt.Errorf("generation cost must be positive")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      params.Tx,
		wallets: params.Wallets,
		ledger:  params.Ledger,
		cost:    params.Cost,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Cost() decimal.Decimal {
	return s.cost
}

func (s *service) Charge(ctx context.Context, userID, imageID uuid.UUID) (*Charge, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if imageID == uuid.Nil {
		imageID = uuid.New()
	}
	logCtx := s.logg.WithField(s.logg.WithUserID(ctx, userID.String()), "image_id", imageID.String())
	logCtx = s.logg.WithAmount(logCtx, "cost", s.cost)

	wallet, err := s.wallets.ForUser(ctx, userID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.recordFailure(logCtx, nil, imageID, "wallet not found")
		}
		return nil, err
	}

	var (
		txn     *models.Transaction
		balance decimal.Decimal
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.wallets.LockForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		balance, err = s.wallets.Debit(ctx, tx, locked.ID, s.cost)
		if err != nil {
			return err
		}
		walletID := locked.ID
		txn, err = s.ledger.Record(ctx, tx, ledger.RecordInput{
			WalletID:    &walletID,
			AIImageID:   &imageID,
			Amount:      s.cost,
			Type:        enums.TransactionTypeAIGeneration,
			Status:      enums.TransactionStatusCompleted,
			Description: "ai image generation",
		})
		return err
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficient) {
			walletID := wallet.ID
			s.recordFailure(logCtx, &walletID, imageID, "insufficient balance")
		}
		return nil, err
	}

	s.metrics.ObserveMovement(string(enums.TransactionTypeAIGeneration), metrics.DirectionDebit, s.cost)
	s.logg.Info(logCtx, "ai generation charged")
	return &Charge{
		ImageID:     imageID,
		Transaction: txn.ID,
		Amount:      s.cost,
		Balance:     balance,
		ChargedAt:   s.now(),
	}, nil
}

// recordFailure writes the refused charge outside any unit so it survives the
// caller's error.
func (s *service) recordFailure(ctx context.Context, walletID *uuid.UUID, imageID uuid.UUID, reason string) {
	_, err := s.ledger.Record(ctx, nil, ledger.RecordInput{
		WalletID:    walletID,
		AIImageID:   &imageID,
		Amount:      s.cost,
		Type:        enums.TransactionTypeAIGeneration,
		Status:      enums.TransactionStatusFailed,
		Description: "ai image generation refused: " + reason,
	})
	if err != nil {
		s.logg.Error(ctx, "record refused ai generation charge", err)
		return
	}
	s.logg.Warn(ctx, "ai generation refused: "+reason)
}
