package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// Repository manages persistence for wallet transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	LockPendingOrderPayment(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error)
	CountLiveOrderPayments(ctx context.Context, orderID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, description *string) (int64, error)
	SettlePendingOrderPayments(ctx context.Context, orderIDs []uuid.UUID) (int64, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Transaction, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) LockPendingOrderPayment(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND type = ? AND status = ?", orderID, enums.TransactionTypeOrderPayment, enums.TransactionStatusPending).
		Order("created_at ASC").
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) CountLiveOrderPayments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND type = ? AND status IN ?", orderID, enums.TransactionTypeOrderPayment,
			[]enums.TransactionStatus{enums.TransactionStatusPending, enums.TransactionStatusCompleted}).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, description *string) (int64, error) {
	updates := map[string]any{"status": to}
	if description != nil {
		updates["description"] = *description
	}
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) SettlePendingOrderPayments(ctx context.Context, orderIDs []uuid.UUID) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id IN ? AND type = ? AND status = ?", orderIDs, enums.TransactionTypeOrderPayment, enums.TransactionStatusPending).
		Updates(map[string]any{"status": enums.TransactionStatusCompleted})
	return result.RowsAffected, result.Error
}

func (r *repository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Transaction, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("wallet_id = ?", walletID)
	return pagination.Keyset(query, pagination.NewestFirst, limit, cursor, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
}
