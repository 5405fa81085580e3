package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/internal/cart"
	"github.com/haulpoints/haulpoints-backend/internal/catalog"
	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/internal/orders"
	"github.com/haulpoints/haulpoints-backend/internal/organizations"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a driver's active cart into an order, paying with points.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
}

// Input identifies the cart being checked out. CartID must be the caller's
// active cart; passing a stale or foreign id fails rather than guessing.
type Input struct {
	DriverUserID uuid.UUID
	OrgID        uuid.UUID
	CartID       uuid.UUID
}

// Result reports the committed redemption.
type Result struct {
	OrderID     uuid.UUID
	PointsSpent int
	NewBalance  int64
}

type service struct {
	tx          Transactor
	carts       cart.Repository
	catalogRepo catalog.Repository
	ledgerRepo  ledger.Repository
	orgRepo     organizations.Repository
	orderRepo   orders.Repository
	logg        *logger.Logger
}

// NewService wires the checkout service with its dependencies.
func NewService(
	tx Transactor,
	carts cart.Repository,
	catalogRepo catalog.Repository,
	ledgerRepo ledger.Repository,
	orgRepo organizations.Repository,
	orderRepo orders.Repository,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactor is required")
	}
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository is required")
	}
	if catalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository is required")
	}
	if ledgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository is required")
	}
	if orgRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "organizations repository is required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{
		tx:          tx,
		carts:       carts,
		catalogRepo: catalogRepo,
		ledgerRepo:  ledgerRepo,
		orgRepo:     orgRepo,
		orderRepo:   orderRepo,
		logg:        logg,
	}, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	if input.DriverUserID == uuid.Nil || input.OrgID == uuid.Nil || input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id, org id and cart id are required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		out, err := s.executeLocked(ctx, tx, input)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     result.OrderID,
		"driver_id":    input.DriverUserID,
		"points_spent": result.PointsSpent,
	})
	s.logg.Info(ctx, "checkout completed")
	return result, nil
}

func (s *service) executeLocked(ctx context.Context, tx *gorm.DB, input Input) (*Result, error) {
	carts := s.carts.WithTx(tx)

	record, err := carts.GetByID(ctx, input.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActiveCart, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	if record.DriverUserID != input.DriverUserID || record.OrgID != input.OrgID {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveCart, "cart is not the driver's active cart")
	}
	if record.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveCart, "cart is already converted")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// Lock order matches the awards path: org row first, then driver row.
	if _, err := s.orgRepo.WithTx(tx).LockByID(ctx, record.OrgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to lock organization")
	}
	ledgerRepo := s.ledgerRepo.WithTx(tx)
	if err := ledgerRepo.LockDriver(ctx, record.DriverUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to lock driver")
	}

	balance, err := ledgerRepo.SumByDriver(ctx, record.DriverUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to sum driver ledger")
	}
	total := cart.Total(record.Items)
	if int64(total) > balance {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient points for checkout").
			WithDetails(map[string]any{"required": total, "balance": balance})
	}

	orderItems, totalUSDCents, err := s.snapshotItems(ctx, tx, record)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		DriverUserID:  record.DriverUserID,
		OrgID:         record.OrgID,
		CartID:        record.ID,
		Status:        enums.OrderStatusPlaced,
		TotalPoints:   total,
		TotalUSDCents: totalUSDCents,
		Items:         orderItems,
	}
	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create order")
	}

	orderID := order.ID
	txn := &models.PointTransaction{
		DriverUserID: record.DriverUserID,
		OrgID:        record.OrgID,
		ActorUserID:  record.DriverUserID,
		Amount:       -total,
		Source:       enums.TransactionSourceOrder,
		Reason:       "order redemption",
		OrderID:      &orderID,
	}
	if err := ledgerRepo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to append ledger entry")
	}

	if err := carts.UpdateStatus(ctx, record.ID, enums.CartStatusConverted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to convert cart")
	}

	return &Result{
		OrderID:     order.ID,
		PointsSpent: total,
		NewBalance:  balance - int64(total),
	}, nil
}

// snapshotItems copies title, image and price data into order lines so the
// order survives later catalog edits or removals.
func (s *service) snapshotItems(ctx context.Context, tx *gorm.DB, record *models.CartRecord) ([]models.OrderItem, int, error) {
	catalogRepo := s.catalogRepo.WithTx(tx)
	items := make([]models.OrderItem, 0, len(record.Items))
	totalUSDCents := 0
	for _, line := range record.Items {
		catalogItem, err := catalogRepo.GetByID(ctx, line.CatalogItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "catalog item no longer available").
					WithDetails(map[string]any{"catalog_item_id": line.CatalogItemID})
			}
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load catalog item")
		}
		if catalogItem.Availability != enums.AvailabilityInStock {
			return nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "catalog item is not available").
				WithDetails(map[string]any{"catalog_item_id": line.CatalogItemID})
		}
		items = append(items, models.OrderItem{
			EbayItemID:            catalogItem.EbayItemID,
			Title:                 catalogItem.Title,
			ImageURL:              catalogItem.ImageURL,
			PointsPriceAtPurchase: line.PointsPriceAtAdd,
			USDCentsAtPurchase:    catalogItem.PriceUSDCents,
			Quantity:              line.Quantity,
		})
		totalUSDCents += catalogItem.PriceUSDCents * line.Quantity
	}
	return items, totalUSDCents, nil
}
