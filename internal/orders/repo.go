package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

// ErrNotPlaced reports that a guarded status update matched no row in the
// expected state.
var ErrNotPlaced = errors.New("order is not in the expected status")

// Repository manages persistence for redemption orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error
}

// ListParams filters the order listing. Nil filters match everything, so the
// admin surface passes none and the driver surface pins DriverUserID.
type ListParams struct {
	DriverUserID *uuid.UUID
	OrgID        *uuid.UUID
	Limit        int
	Cursor       *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if params.DriverUserID != nil {
		query = query.Where("driver_user_id = ?", *params.DriverUserID)
	}
	if params.OrgID != nil {
		query = query.Where("org_id = ?", *params.OrgID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var results []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, nil, err
	}

	if len(results) > normalized {
		results = results[:normalized]
		last := results[len(results)-1]
		return results, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return results, nil, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumn("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPlaced
	}
	return nil
}
