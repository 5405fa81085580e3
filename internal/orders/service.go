package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order history and the order lifecycle.
type Service interface {
	GetForDriver(ctx context.Context, driverUserID, orderID uuid.UUID) (*models.Order, error)
	ListForDriver(ctx context.Context, driverUserID uuid.UUID, page PageParams) (*ListResult, error)
	ListForOrg(ctx context.Context, orgID uuid.UUID, page PageParams) (*ListResult, error)
	ListAll(ctx context.Context, page PageParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
}

// PageParams selects a cursor page of orders.
type PageParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

// ListResult is one page of orders plus the cursor for the next page.
type ListResult struct {
	Orders []models.Order
	Next   *pagination.Cursor
}

// UpdateStatusInput moves an order out of the placed state. OrgID, when set,
// scopes the lookup so sponsors cannot touch another org's orders.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	OrgID       *uuid.UUID
	Status      enums.OrderStatus
}

type service struct {
	tx         Transactor
	repo       Repository
	ledgerRepo ledger.Repository
	logg       *logger.Logger
}

// NewService wires the orders service with its dependencies.
func NewService(tx Transactor, repo Repository, ledgerRepo ledger.Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactor is required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository is required")
	}
	if ledgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{tx: tx, repo: repo, ledgerRepo: ledgerRepo, logg: logg}, nil
}

func (s *service) GetForDriver(ctx context.Context, driverUserID, orderID uuid.UUID) (*models.Order, error) {
	if driverUserID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id and order id are required")
	}
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.DriverUserID != driverUserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForDriver(ctx context.Context, driverUserID uuid.UUID, page PageParams) (*ListResult, error) {
	if driverUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	return s.list(ctx, ListParams{DriverUserID: &driverUserID, Limit: page.Limit, Cursor: page.Cursor})
}

func (s *service) ListForOrg(ctx context.Context, orgID uuid.UUID, page PageParams) (*ListResult, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	return s.list(ctx, ListParams{OrgID: &orgID, Limit: page.Limit, Cursor: page.Cursor})
}

func (s *service) ListAll(ctx context.Context, page PageParams) (*ListResult, error) {
	return s.list(ctx, ListParams{Limit: page.Limit, Cursor: page.Cursor})
}

func (s *service) list(ctx context.Context, params ListParams) (*ListResult, error) {
	results, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}
	return &ListResult{Orders: results, Next: next}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and actor id are required")
	}
	if input.Status != enums.OrderStatusFulfilled && input.Status != enums.OrderStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be fulfilled or canceled").
			WithDetails(map[string]any{"status": input.Status})
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.updateStatusLocked(ctx, tx, input)
		if err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
	})
	s.logg.Info(ctx, "order status updated")
	return order, nil
}

// updateStatusLocked refunds and transitions the order inside one
// transaction. A cancel locks the driver ledger row first so the refund
// serializes with every other balance mutation, and the guarded status
// update makes a lost race roll the refund back with it.
func (s *service) updateStatusLocked(ctx context.Context, tx *gorm.DB, input UpdateStatusInput) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	order, err := s.load(ctx, repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.OrgID != nil && order.OrgID != *input.OrgID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	// Only placed orders move. Fulfilled and canceled are terminal.
	if order.Status != enums.OrderStatusPlaced {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is no longer placed").
			WithDetails(map[string]any{"status": order.Status})
	}

	if input.Status == enums.OrderStatusCanceled {
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		if err := ledgerRepo.LockDriver(ctx, order.DriverUserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to lock driver")
		}
		orderID := order.ID
		if err := ledgerRepo.Create(ctx, &models.PointTransaction{
			DriverUserID: order.DriverUserID,
			OrgID:        order.OrgID,
			ActorUserID:  input.ActorUserID,
			Amount:       order.TotalPoints,
			Source:       enums.TransactionSourceOrder,
			Reason:       "order canceled",
			OrderID:      &orderID,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to refund canceled order")
		}
	}

	if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPlaced, input.Status); err != nil {
		if errors.Is(err, ErrNotPlaced) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is no longer placed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update order status")
	}
	order.Status = input.Status
	return order, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}
