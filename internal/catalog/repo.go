package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// Repository manages persistence for org catalog mirrors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.CatalogItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
	GetByOrgAndEbayID(ctx context.Context, orgID uuid.UUID, ebayItemID string) (*models.CatalogItem, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.CatalogItem, error)
	Save(ctx context.Context, item *models.CatalogItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateAvailability(ctx context.Context, id uuid.UUID, availability enums.AvailabilityStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.CatalogItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetByOrgAndEbayID(ctx context.Context, orgID uuid.UUID, ebayItemID string) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND ebay_item_id = ?", orgID, ebayItemID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("title ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Save(ctx context.Context, item *models.CatalogItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CatalogItem{}, "id = ?", id).Error
}

func (r *repository) UpdateAvailability(ctx context.Context, id uuid.UUID, availability enums.AvailabilityStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CatalogItem{}).
		Where("id = ?", id).
		UpdateColumn("availability", availability).Error
}
