package deposits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// Repository manages persistence for deposit records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.DepositRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DepositRecord, error)
	FindByCode(ctx context.Context, code int64) (*models.DepositRecord, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.DepositRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, updates map[string]any) (int64, error)
	SetCheckoutURL(ctx context.Context, id uuid.UUID, url string) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DepositRecord, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deposits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.DepositRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DepositRecord, error) {
	var record models.DepositRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByCode(ctx context.Context, code int64) (*models.DepositRecord, error) {
	var record models.DepositRecord
	if err := r.db.WithContext(ctx).First(&record, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.DepositRecord, error) {
	var record models.DepositRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.DepositRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *repository) SetCheckoutURL(ctx context.Context, id uuid.UUID, url string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DepositRecord{}).
		Where("id = ? AND status = ?", id, enums.DepositStatusPending).
		Update("checkout_url", url)
	return result.RowsAffected, result.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DepositRecord, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.DepositRecord{}).Where("user_id = ?", userID)
	return pagination.Keyset(query, pagination.NewestFirst, limit, cursor, func(d models.DepositRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
}
