package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// Repository defines persistence operations for cake orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.CakeOrder) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.CakeOrder, error)
	LockByID(ctx context.Context, orderID uuid.UUID) (*models.CakeOrder, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error)
	PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.CakeOrder, error)
	ShippedUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.CakeOrder, error)
	BulkUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, from, to enums.OrderStatus, now time.Time) (int64, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CakeOrder, *pagination.Cursor, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CakeOrder, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its detail rows.
func (r *repository) Create(ctx context.Context, order *models.CakeOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.CakeOrder, error) {
	var order models.CakeOrder
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockByID(ctx context.Context, orderID uuid.UUID) (*models.CakeOrder, error) {
	var order models.CakeOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves the order only while it is still in from; the returned
// row count is zero when another unit got there first.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.CakeOrder{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *repository) PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.CakeOrder, error) {
	return r.dueForPromotion(ctx, enums.OrderStatusPending, "created_at <= ?", cutoff)
}

func (r *repository) ShippedUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.CakeOrder, error) {
	return r.dueForPromotion(ctx, enums.OrderStatusShipped, "updated_at <= ?", cutoff)
}

func (r *repository) dueForPromotion(ctx context.Context, status enums.OrderStatus, clock string, cutoff time.Time) ([]models.CakeOrder, error) {
	var rows []models.CakeOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", status).
		Where(clock, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) BulkUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, from, to enums.OrderStatus, now time.Time) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.CakeOrder{}).
		Where("id IN ? AND status = ?", orderIDs, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	return result.RowsAffected, result.Error
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CakeOrder, *pagination.Cursor, error) {
	return r.list(ctx, r.db.Where("customer_id = ?", customerID), limit, cursor)
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CakeOrder, *pagination.Cursor, error) {
	return r.list(ctx, r.db.Where("shop_id = ?", shopID), limit, cursor)
}

func (r *repository) list(ctx context.Context, scope *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.CakeOrder, *pagination.Cursor, error) {
	query := scope.WithContext(ctx).Model(&models.CakeOrder{})
	return pagination.Keyset(query, pagination.NewestFirst, limit, cursor, func(o models.CakeOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
}
