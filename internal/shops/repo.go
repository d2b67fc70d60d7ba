package shops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
)

// ErrNotFound is returned when the shop id is unknown.
var ErrNotFound = errors.New("shop not found")

// Repository is the shop directory: existence and ownership lookups.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Owner returns the owning user of the shop.
func (r *Repository) Owner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).Select("id", "owner_id").First(&shop, "id = ?", shopID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return shop.OwnerID, nil
}

// Exists reports whether the shop is present.
func (r *Repository) Exists(ctx context.Context, shopID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", shopID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
