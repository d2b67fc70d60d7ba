package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// User is the identity row owned by the account service; the ledger only reads it.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex:ux_users_email"`
	Role      enums.Role `gorm:"column:role;type:text;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
