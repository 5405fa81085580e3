package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// CatalogStore is the slice of the catalog layer the cart needs when
// snapshotting a price at add time.
type CatalogStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
}

// Service manages the driver's single active cart.
type Service interface {
	FetchActive(ctx context.Context, driverUserID uuid.UUID) (*models.CartRecord, error)
	GetOrCreateActive(ctx context.Context, driverUserID, orgID uuid.UUID) (*models.CartRecord, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, driverUserID, itemID uuid.UUID) (*models.CartRecord, error)
}

// AddItemInput describes one catalog selection being placed into the cart.
// CartID is optional; when set it must reference the driver's active cart.
type AddItemInput struct {
	DriverUserID  uuid.UUID
	OrgID         uuid.UUID
	CartID        *uuid.UUID
	CatalogItemID uuid.UUID
	Quantity      int
}

type service struct {
	repo    Repository
	catalog CatalogStore
	logg    *logger.Logger
}

// NewService wires the cart service with its dependencies.
func NewService(repo Repository, catalog CatalogStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository is required")
	}
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog store is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{repo: repo, catalog: catalog, logg: logg}, nil
}

func (s *service) FetchActive(ctx context.Context, driverUserID uuid.UUID) (*models.CartRecord, error) {
	if driverUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	record, err := s.repo.GetActiveByDriver(ctx, driverUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActiveCart, "driver has no active cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load active cart")
	}
	return record, nil
}

func (s *service) GetOrCreateActive(ctx context.Context, driverUserID, orgID uuid.UUID) (*models.CartRecord, error) {
	if driverUserID == uuid.Nil || orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id and org id are required")
	}
	record, err := s.repo.GetActiveByDriver(ctx, driverUserID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load active cart")
	}

	record = &models.CartRecord{
		DriverUserID: driverUserID,
		OrgID:        orgID,
		Status:       enums.CartStatusActive,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create cart")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"cart_id":   record.ID,
		"driver_id": driverUserID,
	})
	s.logg.Info(ctx, "cart created")
	return record, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.CartRecord, error) {
	if err := validateAddItem(input); err != nil {
		return nil, err
	}

	record, err := s.GetOrCreateActive(ctx, input.DriverUserID, input.OrgID)
	if err != nil {
		return nil, err
	}
	if input.CartID != nil && *input.CartID != record.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveCart, "cart is not the driver's active cart").
			WithDetails(map[string]any{"cart_id": *input.CartID})
	}

	catalogItem, err := s.catalog.GetByID(ctx, input.CatalogItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load catalog item")
	}
	if catalogItem.OrgID != record.OrgID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
	}
	if catalogItem.Availability != enums.AvailabilityInStock {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "catalog item is not available").
			WithDetails(map[string]any{"availability": catalogItem.Availability})
	}

	// Re-adding the same catalog item bumps the existing line's quantity.
	// The original snapshot price is kept.
	existing, err := s.repo.GetItemByCatalogItem(ctx, record.ID, input.CatalogItemID)
	switch {
	case err == nil:
		existing.Quantity += input.Quantity
		if err := s.repo.SaveItem(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{
			CartID:           record.ID,
			CatalogItemID:    input.CatalogItemID,
			Quantity:         input.Quantity,
			PointsPriceAtAdd: catalogItem.PointsPrice,
		}
		if err := s.repo.AddItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart item")
	}

	return s.reload(ctx, record.ID)
}

func (s *service) RemoveItem(ctx context.Context, driverUserID, itemID uuid.UUID) (*models.CartRecord, error) {
	if driverUserID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id and item id are required")
	}

	record, err := s.FetchActive(ctx, driverUserID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetItem(ctx, record.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart item")
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove cart item")
	}

	return s.reload(ctx, record.ID)
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.CartRecord, error) {
	record, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload cart")
	}
	return record, nil
}

func validateAddItem(input AddItemInput) error {
	if input.DriverUserID == uuid.Nil || input.OrgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver id and org id are required")
	}
	if input.CatalogItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "catalog item id is required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": input.Quantity})
	}
	return nil
}

// Total sums the snapshot prices of the given cart lines.
func Total(items []models.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.PointsPriceAtAdd * item.Quantity
	}
	return total
}
