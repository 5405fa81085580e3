package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one purchased line. Titles and prices are copied at
// purchase time; removing or repricing a catalog item leaves history intact.
type OrderItem struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	EbayItemID            string    `gorm:"column:ebay_item_id;type:text;not null"`
	Title                 string    `gorm:"column:title;type:text;not null"`
	ImageURL              string    `gorm:"column:image_url;type:text;not null;default:''"`
	PointsPriceAtPurchase int       `gorm:"column:points_price_at_purchase;not null"`
	USDCentsAtPurchase    int       `gorm:"column:usd_cents_at_purchase;not null"`
	Quantity              int       `gorm:"column:quantity;not null"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
}
