package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/internal/organizations"
	"github.com/haulpoints/haulpoints-backend/pkg/config"
	"github.com/haulpoints/haulpoints-backend/pkg/db"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/ebay"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// MarketplaceClient is the Browse API surface the catalog needs.
type MarketplaceClient interface {
	Search(ctx context.Context, req ebay.SearchRequest) ([]ebay.Item, error)
	GetItem(ctx context.Context, itemID string) (*ebay.Item, error)
	FetchImage(ctx context.Context, rawURL string) (*ebay.Image, error)
}

// Service curates an organization's mirrored marketplace catalog.
type Service interface {
	SearchMarketplace(ctx context.Context, orgID uuid.UUID, query string) ([]Candidate, error)
	AddItem(ctx context.Context, orgID uuid.UUID, ebayItemID string) (*models.CatalogItem, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.CatalogItem, error)
	Get(ctx context.Context, orgID, itemID uuid.UUID) (*models.CatalogItem, error)
	Remove(ctx context.Context, orgID, itemID uuid.UUID) error
	RefreshItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.CatalogItem, error)
	RepriceOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, pointValue decimal.Decimal) (int64, error)
	ItemImage(ctx context.Context, rawURL string) *ebay.Image
}

// Candidate is a marketplace search hit priced in the org's points, shown to
// sponsors before they commit an item into the catalog.
type Candidate struct {
	EbayItemID    string   `json:"ebay_item_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ImageURL      string   `json:"image_url"`
	AltImageURLs  []string `json:"alt_image_urls,omitempty"`
	ItemWebURL    string   `json:"item_web_url"`
	PriceUSDCents int      `json:"price_usd_cents"`
	PointsPrice   int      `json:"points_price"`
	InCatalog     bool     `json:"in_catalog"`
}

type service struct {
	repo    Repository
	orgRepo organizations.Repository
	market  MarketplaceClient
	cfg     config.CatalogConfig
	logg    *logger.Logger
}

// NewService wires catalog dependencies.
func NewService(repo Repository, orgRepo organizations.Repository, market MarketplaceClient, cfg config.CatalogConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if orgRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "organizations repository required")
	}
	if market == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "marketplace client required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, orgRepo: orgRepo, market: market, cfg: cfg, logg: logg}, nil
}

func (s *service) SearchMarketplace(ctx context.Context, orgID uuid.UUID, query string) ([]Candidate, error) {
	org, err := s.loadOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}

	raw, err := s.market.Search(ctx, ebay.SearchRequest{Query: query, Limit: s.cfg.SearchLimit})
	if err != nil {
		// Marketplace outages degrade to an empty result set instead of
		// failing the sponsor's search page.
		s.logg.Warn(s.logg.WithField(ctx, "query", query), "marketplace search unavailable: "+err.Error())
		return []Candidate{}, nil
	}

	existing, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog items")
	}
	mirrored := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		mirrored[item.EbayItemID] = struct{}{}
	}

	candidates := make([]Candidate, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		normalized, err := ebay.Normalize(item, s.placeholders())
		if err != nil {
			// Records that cannot be priced or identified are dropped
			// from results rather than failing the whole search.
			continue
		}
		// The browse API repeats listings across result pages; the first
		// occurrence of an item id wins.
		if _, dup := seen[normalized.EbayItemID]; dup {
			continue
		}
		seen[normalized.EbayItemID] = struct{}{}
		_, inCatalog := mirrored[normalized.EbayItemID]
		candidates = append(candidates, Candidate{
			EbayItemID:    normalized.EbayItemID,
			Title:         normalized.Title,
			Description:   normalized.Description,
			ImageURL:      normalized.ImageURL,
			AltImageURLs:  normalized.AltImageURLs,
			ItemWebURL:    normalized.ItemWebURL,
			PriceUSDCents: normalized.PriceUSDCents,
			PointsPrice:   PointsPrice(normalized.PriceUSDCents, org.PointValue),
			InCatalog:     inCatalog,
		})
	}
	return candidates, nil
}

func (s *service) AddItem(ctx context.Context, orgID uuid.UUID, ebayItemID string) (*models.CatalogItem, error) {
	org, err := s.loadOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ebayItemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ebay item id is required")
	}

	raw, err := s.market.GetItem(ctx, ebayItemID)
	if err != nil {
		return nil, err
	}
	normalized, err := ebay.Normalize(*raw, s.placeholders())
	if err != nil {
		return nil, err
	}

	item := &models.CatalogItem{
		OrgID:         orgID,
		EbayItemID:    normalized.EbayItemID,
		Title:         normalized.Title,
		Description:   normalized.Description,
		ImageURL:      normalized.ImageURL,
		AltImageURLs:  normalized.AltImageURLs,
		ItemWebURL:    normalized.ItemWebURL,
		PriceUSDCents: normalized.PriceUSDCents,
		PointsPrice:   PointsPrice(normalized.PriceUSDCents, org.PointValue),
		Availability:  enums.AvailabilityInStock,
	}
	if !normalized.InStock {
		item.Availability = enums.AvailabilityOutOfStock
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "item already in catalog")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create catalog item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]models.CatalogItem, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	items, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog items")
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, orgID, itemID uuid.UUID) (*models.CatalogItem, error) {
	item, err := s.loadItem(ctx, orgID, itemID)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, orgID, itemID uuid.UUID) error {
	item, err := s.loadItem(ctx, orgID, itemID)
	if err != nil {
		return err
	}
	// Removal only hides the item from future shopping. Cart and order
	// snapshots carry copied titles and prices, so history stays intact.
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete catalog item")
	}
	return nil
}

// RefreshItem re-reads the marketplace record and syncs price and
// availability. A vanished listing flips to unavailable instead of erroring.
func (s *service) RefreshItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.CatalogItem, error) {
	org, err := s.loadOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, orgID, itemID)
	if err != nil {
		return nil, err
	}

	raw, err := s.market.GetItem(ctx, item.EbayItemID)
	if err != nil {
		if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
			if updErr := s.repo.UpdateAvailability(ctx, item.ID, enums.AvailabilityUnavailable); updErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "mark item unavailable")
			}
			item.Availability = enums.AvailabilityUnavailable
			return item, nil
		}
		return nil, err
	}

	normalized, err := ebay.Normalize(*raw, s.placeholders())
	if err != nil {
		return nil, err
	}

	item.Title = normalized.Title
	item.Description = normalized.Description
	item.ImageURL = normalized.ImageURL
	item.AltImageURLs = normalized.AltImageURLs
	item.ItemWebURL = normalized.ItemWebURL
	item.PriceUSDCents = normalized.PriceUSDCents
	item.PointsPrice = PointsPrice(normalized.PriceUSDCents, org.PointValue)
	if normalized.InStock {
		item.Availability = enums.AvailabilityInStock
	} else {
		item.Availability = enums.AvailabilityOutOfStock
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refreshed item")
	}
	return item, nil
}

// RepriceOrg recomputes every stored point price from the given conversion
// rate, inside tx when one is passed. Cart and order snapshots are
// deliberately untouched.
func (s *service) RepriceOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, pointValue decimal.Decimal) (int64, error) {
	if orgID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if pointValue.LessThanOrEqual(decimal.Zero) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "point value must be positive")
	}

	repo := s.repo.WithTx(tx)
	items, err := repo.ListByOrg(ctx, orgID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog items")
	}

	var repriced int64
	for i := range items {
		next := PointsPrice(items[i].PriceUSDCents, pointValue)
		if next == items[i].PointsPrice {
			continue
		}
		items[i].PointsPrice = next
		if err := repo.Save(ctx, &items[i]); err != nil {
			return repriced, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save repriced item")
		}
		repriced++
	}
	return repriced, nil
}

func (s *service) loadOrg(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}

func (s *service) loadItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.CatalogItem, error) {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id and item id are required")
	}
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog item")
	}
	if item.OrgID != orgID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
	}
	return item, nil
}

func (s *service) placeholders() ebay.Placeholders {
	return ebay.Placeholders{
		Description: s.cfg.PlaceholderText,
		ImageURL:    s.cfg.PlaceholderIcon,
	}
}

var centsPerDollar = decimal.NewFromInt(100)

// PointsPrice converts a USD cent price into points at the org's conversion
// rate, rounding half up to the nearest whole point.
func PointsPrice(priceUSDCents int, pointValue decimal.Decimal) int {
	if priceUSDCents <= 0 || pointValue.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	pointCents := pointValue.Mul(centsPerDollar)
	return int(decimal.NewFromInt(int64(priceUSDCents)).Div(pointCents).Round(0).IntPart())
}
