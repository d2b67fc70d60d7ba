package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
)

// Repository exposes current ingredient prices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// UnitPrices returns the price of every id found; missing ids are absent from the map.
	UnitPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UnitPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	prices := make(map[uuid.UUID]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}
	var rows []models.Ingredient
	if err := r.db.WithContext(ctx).Select("id", "price").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		prices[row.ID] = row.Price
	}
	return prices, nil
}
