package awards

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/internal/limits"
	"github.com/haulpoints/haulpoints-backend/internal/organizations"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// Transactor runs a function inside a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies awards and deductions against driver balances.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*Outcome, error)
	ApplyBatch(ctx context.Context, input BatchInput) (*BatchResult, error)
}

type service struct {
	tx         Transactor
	ledgerRepo ledger.Repository
	orgRepo    organizations.Repository
	logg       *logger.Logger
	now        func() time.Time
}

// ApplyInput describes a single balance change. Positive amounts award,
// negative amounts deduct.
type ApplyInput struct {
	OrgID        uuid.UUID
	DriverUserID uuid.UUID
	ActorUserID  uuid.UUID
	Amount       int
	Source       enums.TransactionSource
	Reason       string
}

// BatchInput awards the same amount to several drivers, each judged on its
// own balance and the org's remaining monthly budget.
type BatchInput struct {
	OrgID         uuid.UUID
	ActorUserID   uuid.UUID
	DriverUserIDs []uuid.UUID
	Amount        int
	Source        enums.TransactionSource
	Reason        string
}

// Outcome reports one applied change.
type Outcome struct {
	Transaction *models.PointTransaction `json:"transaction"`
	NewBalance  int64                    `json:"new_balance"`
}

// DriverResult is the per-driver verdict inside a batch.
type DriverResult struct {
	DriverUserID uuid.UUID                `json:"driver_user_id"`
	Applied      bool                     `json:"applied"`
	Transaction  *models.PointTransaction `json:"transaction,omitempty"`
	NewBalance   *int64                   `json:"new_balance,omitempty"`
	ErrorCode    string                   `json:"error_code,omitempty"`
	ErrorDetails any                      `json:"error_details,omitempty"`
}

// BatchResult aggregates per-driver outcomes. Applied counts committed rows;
// a rejected driver never blocks the rest of the batch.
type BatchResult struct {
	Applied  int            `json:"applied"`
	Rejected int            `json:"rejected"`
	Results  []DriverResult `json:"results"`
}

// NewService wires the award service.
func NewService(tx Transactor, ledgerRepo ledger.Repository, orgRepo organizations.Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactor required")
	}
	if ledgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	if orgRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "organizations repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		tx:         tx,
		ledgerRepo: ledgerRepo,
		orgRepo:    orgRepo,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*Outcome, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var outcome *Outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.applyLocked(ctx, tx, input)
		if err != nil {
			return err
		}
		outcome = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"driver_user_id": input.DriverUserID.String(),
		"org_id":         input.OrgID.String(),
		"amount":         input.Amount,
		"source":         input.Source.String(),
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "ledger entry applied")
	return outcome, nil
}

// ApplyBatch evaluates each driver in its own transaction so one rejection
// never rolls back a neighbour's committed award. Drivers are processed in
// order, so earlier grants consume monthly budget seen by later ones.
func (s *service) ApplyBatch(ctx context.Context, input BatchInput) (*BatchResult, error) {
	if len(input.DriverUserIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one driver is required")
	}
	base := ApplyInput{
		OrgID:       input.OrgID,
		ActorUserID: input.ActorUserID,
		Amount:      input.Amount,
		Source:      input.Source,
		Reason:      input.Reason,
	}
	probe := base
	probe.DriverUserID = uuid.New() // validate shape once before touching any driver
	if err := validateInput(probe); err != nil {
		return nil, err
	}

	result := &BatchResult{Results: make([]DriverResult, 0, len(input.DriverUserIDs))}
	for _, driverID := range input.DriverUserIDs {
		entry := base
		entry.DriverUserID = driverID

		var outcome *Outcome
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			applied, err := s.applyLocked(ctx, tx, entry)
			if err != nil {
				return err
			}
			outcome = applied
			return nil
		})
		if err != nil {
			typed := pkgerrors.As(err)
			dr := DriverResult{DriverUserID: driverID, Applied: false}
			if typed != nil {
				dr.ErrorCode = string(typed.Code())
				dr.ErrorDetails = typed.Details()
			} else {
				dr.ErrorCode = string(pkgerrors.CodeInternal)
			}
			result.Rejected++
			result.Results = append(result.Results, dr)
			continue
		}

		balance := outcome.NewBalance
		result.Applied++
		result.Results = append(result.Results, DriverResult{
			DriverUserID: driverID,
			Applied:      true,
			Transaction:  outcome.Transaction,
			NewBalance:   &balance,
		})
	}

	fields := map[string]any{
		"org_id":   input.OrgID.String(),
		"applied":  result.Applied,
		"rejected": result.Rejected,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "batch award processed")
	return result, nil
}

// applyLocked performs the locked read-check-append sequence. Lock order is
// org row then driver row, matching checkout, so the two paths never deadlock.
func (s *service) applyLocked(ctx context.Context, tx *gorm.DB, input ApplyInput) (*Outcome, error) {
	orgRepo := s.orgRepo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)

	org, err := orgRepo.LockByID(ctx, input.OrgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock organization")
	}
	if err := ledgerRepo.LockDriver(ctx, input.DriverUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock driver")
	}

	balance, err := ledgerRepo.SumByDriver(ctx, input.DriverUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum driver ledger")
	}

	var monthly int64
	if input.Amount > 0 && org.MonthlyPointLimit != nil {
		monthly, err = ledgerRepo.SumAwardedByOrgSince(ctx, input.OrgID, ledger.MonthStart(s.now()))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum org awards")
		}
	}

	if violation := limits.Evaluate(org, balance, monthly, input.Amount); violation != nil {
		return nil, violation.Err()
	}

	txn := &models.PointTransaction{
		DriverUserID: input.DriverUserID,
		OrgID:        input.OrgID,
		ActorUserID:  input.ActorUserID,
		Amount:       input.Amount,
		Source:       input.Source,
		Reason:       strings.TrimSpace(input.Reason),
	}
	if err := ledgerRepo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	return &Outcome{Transaction: txn, NewBalance: balance + int64(input.Amount)}, nil
}

func validateInput(input ApplyInput) error {
	if input.OrgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if input.DriverUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver user id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if input.Amount == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if !input.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction source")
	}
	if input.Source.RequiresReason() && strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "manual and recurring entries require a reason")
	}
	return nil
}
