package complaints

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// Repository manages persistence for complaints.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ComplaintStatus, updates map[string]any) (int64, error)
	ListByStatus(ctx context.Context, status enums.ComplaintStatus, limit int, cursor *pagination.Cursor) ([]models.Complaint, *pagination.Cursor, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Complaint, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a complaints repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).First(&complaint, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&complaint, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ComplaintStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return result.RowsAffected, result.Error
}

// ListByStatus pages oldest first so the review queue is worked in filing order.
func (r *repository) ListByStatus(ctx context.Context, status enums.ComplaintStatus, limit int, cursor *pagination.Cursor) ([]models.Complaint, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("status = ?", status)
	return pagination.Keyset(query, pagination.OldestFirst, limit, cursor, complaintCursor)
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Complaint, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("user_id = ?", userID)
	return pagination.Keyset(query, pagination.NewestFirst, limit, cursor, complaintCursor)
}

func complaintCursor(c models.Complaint) pagination.Cursor {
	return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
}
