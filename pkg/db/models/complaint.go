package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/cakeverse/cakeverse-backend/pkg/db/types"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// Complaint is a customer dispute against a cake order.
type Complaint struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index:ix_complaints_order_id"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Reason      string                `gorm:"column:reason;type:text;not null"`
	Evidence    dbtypes.StringList    `gorm:"column:evidence;type:jsonb;not null"`
	Status      enums.ComplaintStatus `gorm:"column:status;type:text;not null;index:ix_complaints_status"`
	AdminNote   *string               `gorm:"column:admin_note;type:text"`
	ProcessedAt *time.Time            `gorm:"column:processed_at"`
	ProcessedBy *uuid.UUID            `gorm:"column:processed_by;type:uuid"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Complaint) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
