package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// Repository manages persistence for withdraw records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.WithdrawRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawRecord, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.WithdrawRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawStatus, updates map[string]any) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.WithdrawRecord, *pagination.Cursor, error)
	ListByStatus(ctx context.Context, status enums.WithdrawStatus, limit int, cursor *pagination.Cursor) ([]models.WithdrawRecord, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.WithdrawRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawRecord, error) {
	var record models.WithdrawRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.WithdrawRecord, error) {
	var record models.WithdrawRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.WithdrawRecord, *pagination.Cursor, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&models.WithdrawRecord{}).Where("user_id = ?", userID), limit, cursor)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.WithdrawStatus, limit int, cursor *pagination.Cursor) ([]models.WithdrawRecord, *pagination.Cursor, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&models.WithdrawRecord{}).Where("status = ?", status), limit, cursor)
}

func (r *repository) list(_ context.Context, query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.WithdrawRecord, *pagination.Cursor, error) {
	return pagination.Keyset(query, pagination.NewestFirst, limit, cursor, func(w models.WithdrawRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
	})
}
