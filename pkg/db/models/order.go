package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// Order is a committed redemption produced from a cart at checkout.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverUserID  uuid.UUID         `gorm:"column:driver_user_id;type:uuid;not null;index"`
	OrgID         uuid.UUID         `gorm:"column:org_id;type:uuid;not null;index"`
	CartID        uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'placed'"`
	TotalPoints   int               `gorm:"column:total_points;not null"`
	TotalUSDCents int               `gorm:"column:total_usd_cents;not null"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
