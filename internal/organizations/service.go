package organizations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CatalogRepricer recomputes stored point prices after a conversion rate change.
type CatalogRepricer interface {
	RepriceOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, pointValue decimal.Decimal) (int64, error)
}

// Service defines organization management operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Organization, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
	UpdateSettings(ctx context.Context, orgID uuid.UUID, input UpdateSettingsInput) (*models.Organization, error)
}

type service struct {
	tx       Transactor
	repo     Repository
	repricer CatalogRepricer
	logg     *logger.Logger
}

// CreateInput holds the fields required to register an organization.
type CreateInput struct {
	Name              string
	PointValue        decimal.Decimal
	PointUpperLimit   *int
	PointLowerLimit   *int
	MonthlyPointLimit *int
}

// UpdateSettingsInput applies a partial settings change. Pointer fields left
// nil are untouched; the Clear flags reset the matching limit to unenforced.
type UpdateSettingsInput struct {
	PointValue        *decimal.Decimal
	PointUpperLimit   *int
	PointLowerLimit   *int
	MonthlyPointLimit *int
	ClearUpperLimit   bool
	ClearLowerLimit   bool
	ClearMonthlyLimit bool
}

// NewService wires organization dependencies.
func NewService(tx Transactor, repo Repository, repricer CatalogRepricer, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactor required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "organizations repository required")
	}
	if repricer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repricer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{tx: tx, repo: repo, repricer: repricer, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name is required")
	}
	if input.PointValue.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "point value must be positive")
	}
	if err := validateBounds(input.PointUpperLimit, input.PointLowerLimit, input.MonthlyPointLimit); err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:              name,
		PointValue:        input.PointValue,
		PointUpperLimit:   input.PointUpperLimit,
		PointLowerLimit:   input.PointLowerLimit,
		MonthlyPointLimit: input.MonthlyPointLimit,
	}
	if err := s.repo.Create(ctx, org); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "organization name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create organization")
	}
	return org, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}

func (s *service) List(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organizations")
	}
	return orgs, nil
}

func (s *service) UpdateSettings(ctx context.Context, orgID uuid.UUID, input UpdateSettingsInput) (*models.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	rateChanged := false
	if input.PointValue != nil {
		if input.PointValue.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "point value must be positive")
		}
		rateChanged = !org.PointValue.Equal(*input.PointValue)
		org.PointValue = *input.PointValue
	}
	if input.ClearUpperLimit {
		org.PointUpperLimit = nil
	} else if input.PointUpperLimit != nil {
		org.PointUpperLimit = input.PointUpperLimit
	}
	if input.ClearLowerLimit {
		org.PointLowerLimit = nil
	} else if input.PointLowerLimit != nil {
		org.PointLowerLimit = input.PointLowerLimit
	}
	if input.ClearMonthlyLimit {
		org.MonthlyPointLimit = nil
	} else if input.MonthlyPointLimit != nil {
		org.MonthlyPointLimit = input.MonthlyPointLimit
	}

	if err := validateBounds(org.PointUpperLimit, org.PointLowerLimit, org.MonthlyPointLimit); err != nil {
		return nil, err
	}

	// Changing the conversion rate retargets every stored catalog price,
	// so the settings write and the reprice commit together. Existing
	// cart and order snapshots keep their captured values.
	var repriced int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, org); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save organization settings")
		}
		if !rateChanged {
			return nil
		}
		count, err := s.repricer.RepriceOrg(ctx, tx, org.ID, org.PointValue)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reprice catalog")
		}
		repriced = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rateChanged {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"org_id":      org.ID.String(),
			"point_value": org.PointValue.String(),
			"repriced":    repriced,
		}), "catalog repriced after conversion rate change")
	}

	return org, nil
}

func validateBounds(upper, lower, monthly *int) error {
	if upper != nil && *upper < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "upper limit must be non-negative")
	}
	if monthly != nil && *monthly < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "monthly limit must be non-negative")
	}
	if upper != nil && lower != nil && *lower > *upper {
		return pkgerrors.New(pkgerrors.CodeValidation, "lower limit cannot exceed upper limit")
	}
	return nil
}
