package organizations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
)

// Repository manages persistence for organizations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
	Save(ctx context.Context, org *models.Organization) error
	LockByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an organizations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) List(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repository) Save(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

// LockByID loads the org under a row lock so concurrent awards against the
// same monthly budget serialize. Must run inside a transaction.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}
