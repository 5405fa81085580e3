package awards

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// RecurringService manages the schedule of repeating grants. The actual
// granting happens in the worker, through the same limit checks as manual awards.
type RecurringService interface {
	Create(ctx context.Context, input CreateRecurringInput) (*models.RecurringAward, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.RecurringAward, error)
	SetActive(ctx context.Context, orgID, id uuid.UUID, active bool) (*models.RecurringAward, error)
}

// CreateRecurringInput describes a repeating grant. FirstRunAt defaults to
// now, so the next worker cycle picks the row up.
type CreateRecurringInput struct {
	OrgID        uuid.UUID
	DriverUserID uuid.UUID
	ActorUserID  uuid.UUID
	Amount       int
	Reason       string
	IntervalDays int
	FirstRunAt   *time.Time
}

type recurringService struct {
	repo RecurringRepository
	logg *logger.Logger
	now  func() time.Time
}

// NewRecurringService wires the recurring awards service.
func NewRecurringService(repo RecurringRepository, logg *logger.Logger) (RecurringService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "recurring awards repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &recurringService{
		repo: repo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *recurringService) Create(ctx context.Context, input CreateRecurringInput) (*models.RecurringAward, error) {
	if input.OrgID == uuid.Nil || input.DriverUserID == uuid.Nil || input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org, driver and actor ids are required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recurring awards must grant a positive amount")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if input.IntervalDays < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "interval must be at least one day")
	}

	nextRun := s.now()
	if input.FirstRunAt != nil {
		nextRun = input.FirstRunAt.UTC()
	}

	award := &models.RecurringAward{
		OrgID:        input.OrgID,
		DriverUserID: input.DriverUserID,
		ActorUserID:  input.ActorUserID,
		Amount:       input.Amount,
		Reason:       reason,
		IntervalDays: input.IntervalDays,
		NextRunAt:    nextRun,
		Active:       true,
	}
	if err := s.repo.Create(ctx, award); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create recurring award")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"recurring_award_id": award.ID,
		"driver_id":          award.DriverUserID,
		"interval_days":      award.IntervalDays,
	})
	s.logg.Info(ctx, "recurring award scheduled")
	return award, nil
}

func (s *recurringService) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.RecurringAward, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	results, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list recurring awards")
	}
	return results, nil
}

func (s *recurringService) SetActive(ctx context.Context, orgID, id uuid.UUID, active bool) (*models.RecurringAward, error) {
	if orgID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id and award id are required")
	}
	award, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recurring award not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recurring award")
	}
	if award.OrgID != orgID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recurring award not found")
	}

	if award.Active != active {
		award.Active = active
		if err := s.repo.Save(ctx, award); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save recurring award")
		}
	}
	return award, nil
}
