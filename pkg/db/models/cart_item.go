package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem holds one catalog selection inside a CartRecord. The points price
// is snapshotted at add time so later catalog repricing never alters an open cart.
type CartItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID           uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	CatalogItemID    uuid.UUID `gorm:"column:catalog_item_id;type:uuid;not null"`
	Quantity         int       `gorm:"column:quantity;not null"`
	PointsPriceAtAdd int       `gorm:"column:points_price_at_add;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
