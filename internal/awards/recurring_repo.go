package awards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
)

// RecurringRepository manages persistence for scheduled point grants.
type RecurringRepository interface {
	WithTx(tx *gorm.DB) RecurringRepository
	Create(ctx context.Context, award *models.RecurringAward) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringAward, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.RecurringAward, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.RecurringAward, error)
	Save(ctx context.Context, award *models.RecurringAward) error
}

type recurringRepository struct {
	db *gorm.DB
}

// NewRecurringRepository returns a recurring awards repository bound to the provided database.
func NewRecurringRepository(db *gorm.DB) RecurringRepository {
	return &recurringRepository{db: db}
}

func (r *recurringRepository) WithTx(tx *gorm.DB) RecurringRepository {
	if tx == nil {
		return r
	}
	return &recurringRepository{db: tx}
}

func (r *recurringRepository) Create(ctx context.Context, award *models.RecurringAward) error {
	return r.db.WithContext(ctx).Create(award).Error
}

func (r *recurringRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringAward, error) {
	var award models.RecurringAward
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&award).Error; err != nil {
		return nil, err
	}
	return &award, nil
}

func (r *recurringRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.RecurringAward, error) {
	var results []models.RecurringAward
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("next_run_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recurringRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.RecurringAward, error) {
	query := r.db.WithContext(ctx).
		Where("active AND next_run_at <= ?", now).
		Order("next_run_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var results []models.RecurringAward
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recurringRepository) Save(ctx context.Context, award *models.RecurringAward) error {
	return r.db.WithContext(ctx).Save(award).Error
}
