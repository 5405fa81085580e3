package ebay

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
)

// Placeholders supplies fallback content for sparse marketplace records.
type Placeholders struct {
	Description string
	ImageURL    string
}

// NormalizedItem is a marketplace record reduced to the fields the catalog
// stores, with fallbacks already applied and the price converted to cents.
type NormalizedItem struct {
	EbayItemID    string
	Title         string
	Description   string
	ImageURL      string
	AltImageURLs  []string
	ItemWebURL    string
	PriceUSDCents int
	InStock       bool
}

var centsFactor = decimal.NewFromInt(100)

// Normalize maps a raw Browse API item onto the catalog shape. Missing
// descriptions fall back to the condition and then to the placeholder
// text; missing images fall back to the first additional image and then
// to the placeholder icon. Non-USD or unparsable prices are rejected
// rather than guessed at.
func Normalize(item Item, placeholders Placeholders) (*NormalizedItem, error) {
	itemID := strings.TrimSpace(item.ItemID)
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace item id is required")
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace item title is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(item.PriceCurrency))
	if currency != "" && currency != "USD" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only USD priced items are supported").WithDetails(map[string]string{"currency": currency})
	}
	price, err := decimal.NewFromString(strings.TrimSpace(item.PriceValue))
	if err != nil || price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace item price is invalid")
	}
	cents := int(price.Mul(centsFactor).Round(0).IntPart())

	description := strings.TrimSpace(item.ShortDescription)
	if description == "" {
		description = strings.TrimSpace(item.Condition)
	}
	if description == "" {
		description = placeholders.Description
	}

	image := strings.TrimSpace(item.ImageURL)
	if image == "" && len(item.AdditionalImageURLs) > 0 {
		image = strings.TrimSpace(item.AdditionalImageURLs[0])
	}
	if image == "" {
		image = placeholders.ImageURL
	}

	return &NormalizedItem{
		EbayItemID:    itemID,
		Title:         title,
		Description:   description,
		ImageURL:      image,
		AltImageURLs:  item.AdditionalImageURLs,
		ItemWebURL:    strings.TrimSpace(item.ItemWebURL),
		PriceUSDCents: cents,
		InStock:       !strings.EqualFold(item.Availability, "OUT_OF_STOCK"),
	}, nil
}
