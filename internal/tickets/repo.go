package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// Repository manages persistence for support tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, filter ListFilter) ([]models.Ticket, error)
	Save(ctx context.Context, ticket *models.Ticket) error
}

// ListFilter narrows the ticket listing. Nil fields match everything.
type ListFilter struct {
	OpenedByUserID *uuid.UUID
	OrgID          *uuid.UUID
	Status         *enums.TicketStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a tickets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&models.Ticket{})
	if filter.OpenedByUserID != nil {
		query = query.Where("opened_by_user_id = ?", *filter.OpenedByUserID)
	}
	if filter.OrgID != nil {
		query = query.Where("org_id = ?", *filter.OrgID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	var results []models.Ticket
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) Save(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}
