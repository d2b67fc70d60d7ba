package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderDetail is one ingredient line of a cake order, priced at creation.
type OrderDetail struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:ix_order_details_order_id"`
	IngredientID uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (d *OrderDetail) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
