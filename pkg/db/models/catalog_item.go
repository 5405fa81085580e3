package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// CatalogItem mirrors one externally sourced product curated into an
// organization's catalog. PointsPrice derives from PriceUSDCents and the
// organization's point value and is recomputed on conversion-rate changes.
type CatalogItem struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID         uuid.UUID                `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_catalog_org_ebay"`
	EbayItemID    string                   `gorm:"column:ebay_item_id;type:text;not null;uniqueIndex:idx_catalog_org_ebay"`
	Title         string                   `gorm:"column:title;type:text;not null"`
	Description   string                   `gorm:"column:description;type:text;not null;default:''"`
	ImageURL      string                   `gorm:"column:image_url;type:text;not null;default:''"`
	AltImageURLs  pq.StringArray           `gorm:"column:alt_image_urls;type:text[]"`
	ItemWebURL    string                   `gorm:"column:item_web_url;type:text;not null;default:''"`
	PriceUSDCents int                      `gorm:"column:price_usd_cents;not null"`
	PointsPrice   int                      `gorm:"column:points_price;not null"`
	Availability  enums.AvailabilityStatus `gorm:"column:availability;type:availability_status;not null;default:'in_stock'"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
