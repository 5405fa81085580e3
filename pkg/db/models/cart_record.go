package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// CartRecord is the single live pre-order container a driver shops into.
// At most one active record exists per driver; checkout flips it to converted.
type CartRecord struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverUserID uuid.UUID        `gorm:"column:driver_user_id;type:uuid;not null;index"`
	OrgID        uuid.UUID        `gorm:"column:org_id;type:uuid;not null"`
	Status       enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Items        []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
