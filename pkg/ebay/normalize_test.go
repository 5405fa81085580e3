package ebay

import (
	"testing"

	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
)

var testPlaceholders = Placeholders{
	Description: "No description available.",
	ImageURL:    "https://cdn.haulpoints.example/placeholder.png",
}

func TestNormalizeConvertsPriceToCents(t *testing.T) {
	normalized, err := Normalize(Item{
		ItemID:        "v1|123|0",
		Title:         "Tool Kit",
		PriceValue:    "49.99",
		PriceCurrency: "USD",
		ImageURL:      "https://img.example/1.jpg",
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.PriceUSDCents != 4999 {
		t.Fatalf("expected 4999 cents, got %d", normalized.PriceUSDCents)
	}
}

func TestNormalizeDescriptionFallbackTiers(t *testing.T) {
	normalized, err := Normalize(Item{
		ItemID:           "v1|123|0",
		Title:            "Tool Kit",
		ShortDescription: "A sturdy 40-piece kit.",
		Condition:        "New",
		PriceValue:       "10.00",
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.Description != "A sturdy 40-piece kit." {
		t.Fatalf("expected short description kept, got %q", normalized.Description)
	}

	normalized, err = Normalize(Item{
		ItemID:     "v1|123|0",
		Title:      "Tool Kit",
		Condition:  "Refurbished",
		PriceValue: "10.00",
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.Description != "Refurbished" {
		t.Fatalf("expected condition fallback, got %q", normalized.Description)
	}

	normalized, err = Normalize(Item{
		ItemID:     "v1|123|0",
		Title:      "Tool Kit",
		PriceValue: "10.00",
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.Description != testPlaceholders.Description {
		t.Fatalf("expected placeholder fallback, got %q", normalized.Description)
	}
}

func TestNormalizeImageFallbackTiers(t *testing.T) {
	normalized, err := Normalize(Item{
		ItemID:              "v1|123|0",
		Title:               "Tool Kit",
		PriceValue:          "10.00",
		AdditionalImageURLs: []string{"https://img.example/alt.jpg"},
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.ImageURL != "https://img.example/alt.jpg" {
		t.Fatalf("expected first additional image, got %q", normalized.ImageURL)
	}

	normalized, err = Normalize(Item{
		ItemID:     "v1|123|0",
		Title:      "Tool Kit",
		PriceValue: "10.00",
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.ImageURL != testPlaceholders.ImageURL {
		t.Fatalf("expected placeholder image, got %q", normalized.ImageURL)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		item Item
	}{
		{"missing id", Item{Title: "Tool Kit", PriceValue: "10.00"}},
		{"missing title", Item{ItemID: "v1|123|0", PriceValue: "10.00"}},
		{"bad price", Item{ItemID: "v1|123|0", Title: "Tool Kit", PriceValue: "free"}},
		{"negative price", Item{ItemID: "v1|123|0", Title: "Tool Kit", PriceValue: "-1.00"}},
		{"foreign currency", Item{ItemID: "v1|123|0", Title: "Tool Kit", PriceValue: "10.00", PriceCurrency: "EUR"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.item, testPlaceholders); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalizeAvailability(t *testing.T) {
	normalized, err := Normalize(Item{
		ItemID:       "v1|123|0",
		Title:        "Tool Kit",
		PriceValue:   "10.00",
		Availability: "OUT_OF_STOCK",
	}, testPlaceholders)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.InStock {
		t.Fatal("expected out of stock")
	}
}
