package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
)

// Repository persists wallet rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	// LockByID and LockByUserID read the row with SELECT ... FOR UPDATE and
	// must be called on a transaction-bound repository.
	LockByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    balance,
			"updated_at": r.db.NowFunc(),
		}).Error
}
