package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

// Service performs balance mutations. Debit and Credit always run inside the
// caller's atomic unit and never open their own.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	ForUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	LockForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type userDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type service struct {
	repo  Repository
	users userDirectory
}

// NewService wires the wallet service.
func NewService(repo Repository, users userDirectory) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	return &service{repo: repo, users: users}, nil
}

func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	wallet := &models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := s.repo.Create(ctx, wallet); err != nil {
		// a concurrent caller created it first
		if dbpkg.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindByUserID(ctx, userID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload wallet")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

func (s *service) ForUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) LockForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "atomic unit required")
	}
	wallet, err := s.repo.WithTx(tx).LockByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	return wallet, nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.apply(ctx, tx, walletID, amount, true)
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.apply(ctx, tx, walletID, amount, false)
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount decimal.Decimal, debit bool) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "atomic unit required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.LockByID(ctx, walletID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}

	next := wallet.Balance.Add(amount)
	if debit {
		if wallet.Balance.LessThan(amount) {
			return wallet.Balance, pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient wallet balance").
				WithDetails(map[string]any{
					"balance":  wallet.Balance.StringFixed(2),
					"required": amount.StringFixed(2),
				})
		}
		next = wallet.Balance.Sub(amount)
	}

	if err := repo.UpdateBalance(ctx, wallet.ID, next); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}
	return next, nil
}
