package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

// Service defines operations that record and read ledger entries.
type Service interface {
	Record(ctx context.Context, input RecordTransactionInput) (*models.PointTransaction, error)
	Balance(ctx context.Context, driverUserID uuid.UUID) (int64, error)
	History(ctx context.Context, params HistoryParams) (*HistoryResult, error)
	AwardedThisMonth(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error)
	DeductedThisMonth(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error)
}

type service struct {
	repo Repository
}

// RecordTransactionInput captures the immutable data a ledger entry requires.
type RecordTransactionInput struct {
	DriverUserID uuid.UUID
	OrgID        uuid.UUID
	ActorUserID  uuid.UUID
	Amount       int
	Source       enums.TransactionSource
	Reason       string
	OrderID      *uuid.UUID
}

// HistoryParams selects a page of a driver's transaction history.
type HistoryParams struct {
	DriverUserID uuid.UUID
	Limit        int
	Cursor       string
}

// HistoryResult is one page of ledger entries plus the cursor for the next.
type HistoryResult struct {
	Items  []models.PointTransaction `json:"items"`
	Cursor string                    `json:"cursor"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordTransactionInput) (*models.PointTransaction, error) {
	if input.DriverUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver user id is required")
	}
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if input.Amount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction source")
	}
	reason := strings.TrimSpace(input.Reason)
	if input.Source.RequiresReason() && reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manual and recurring entries require a reason")
	}

	txn := &models.PointTransaction{
		DriverUserID: input.DriverUserID,
		OrgID:        input.OrgID,
		ActorUserID:  input.ActorUserID,
		Amount:       input.Amount,
		Source:       input.Source,
		Reason:       reason,
		OrderID:      input.OrderID,
	}

	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger entry")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, driverUserID uuid.UUID) (int64, error) {
	if driverUserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "driver user id is required")
	}
	total, err := s.repo.SumByDriver(ctx, driverUserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum driver ledger")
	}
	return total, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.DriverUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver user id is required")
	}

	query := listTransactionsParams{
		DriverUserID: params.DriverUserID,
		Limit:        params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &HistoryResult{Items: rows, Cursor: cursor}, nil
}

// AwardedThisMonth totals the points an org has granted since the first of the
// current calendar month in UTC.
func (s *service) AwardedThisMonth(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	if orgID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	monthStart := MonthStart(now)
	total, err := s.repo.SumAwardedByOrgSince(ctx, orgID, monthStart)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum org awards")
	}
	return total, nil
}

// DeductedThisMonth totals the magnitude of points an org has deducted since
// the first of the current calendar month in UTC.
func (s *service) DeductedThisMonth(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	if orgID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	monthStart := MonthStart(now)
	total, err := s.repo.SumDeductedByOrgSince(ctx, orgID, monthStart)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum org deductions")
	}
	return total, nil
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
}
