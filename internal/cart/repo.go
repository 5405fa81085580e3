package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// Repository manages persistence for cart records and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.CartRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CartRecord, error)
	GetActiveByDriver(ctx context.Context, driverUserID uuid.UUID) (*models.CartRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error
	AddItem(ctx context.Context, item *models.CartItem) error
	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	GetItemByCatalogItem(ctx context.Context, cartID, catalogItemID uuid.UUID) (*models.CartItem, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.CartRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) GetActiveByDriver(ctx context.Context, driverUserID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("driver_user_id = ? AND status = ?", driverUserID, enums.CartStatusActive).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

func (r *repository) AddItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetItemByCatalogItem(ctx context.Context, cartID, catalogItemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ? AND catalog_item_id = ?", cartID, catalogItemID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", itemID).Error
}
