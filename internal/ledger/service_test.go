package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

type stubRepo struct {
	createFn   func(ctx context.Context, txn *models.PointTransaction) error
	sumDriver  func(ctx context.Context, driverUserID uuid.UUID) (int64, error)
	sumOrg     func(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error)
	sumOrgNeg  func(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error)
	listFn     func(ctx context.Context, params listTransactionsParams) ([]models.PointTransaction, *pagination.Cursor, error)
	lockDriver func(ctx context.Context, driverUserID uuid.UUID) error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, txn *models.PointTransaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, txn)
}

func (s *stubRepo) SumByDriver(ctx context.Context, driverUserID uuid.UUID) (int64, error) {
	return s.sumDriver(ctx, driverUserID)
}

func (s *stubRepo) SumAwardedByOrgSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	return s.sumOrg(ctx, orgID, since)
}

func (s *stubRepo) SumDeductedByOrgSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	return s.sumOrgNeg(ctx, orgID, since)
}

func (s *stubRepo) List(ctx context.Context, params listTransactionsParams) ([]models.PointTransaction, *pagination.Cursor, error) {
	return s.listFn(ctx, params)
}

func (s *stubRepo) LockDriver(ctx context.Context, driverUserID uuid.UUID) error {
	if s.lockDriver == nil {
		return nil
	}
	return s.lockDriver(ctx, driverUserID)
}

func TestRecordValidation(t *testing.T) {
	svc, err := NewService(&stubRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	driver := uuid.New()
	org := uuid.New()
	actor := uuid.New()

	cases := []struct {
		name  string
		input RecordTransactionInput
	}{
		{"missing driver", RecordTransactionInput{OrgID: org, ActorUserID: actor, Amount: 10, Source: enums.TransactionSourceManual}},
		{"missing org", RecordTransactionInput{DriverUserID: driver, ActorUserID: actor, Amount: 10, Source: enums.TransactionSourceManual}},
		{"zero amount", RecordTransactionInput{DriverUserID: driver, OrgID: org, ActorUserID: actor, Amount: 0, Source: enums.TransactionSourceManual}},
		{"bad source", RecordTransactionInput{DriverUserID: driver, OrgID: org, ActorUserID: actor, Amount: 10, Source: "bogus"}},
		{"deduction without reason", RecordTransactionInput{DriverUserID: driver, OrgID: org, ActorUserID: actor, Amount: -5, Source: enums.TransactionSourceManual}},
		{"award without reason", RecordTransactionInput{DriverUserID: driver, OrgID: org, ActorUserID: actor, Amount: 50, Source: enums.TransactionSourceManual}},
		{"blank reason", RecordTransactionInput{DriverUserID: driver, OrgID: org, ActorUserID: actor, Amount: 50, Source: enums.TransactionSourceRecurring, Reason: "   "}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tc.input)
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRecordPersistsTrimmedReason(t *testing.T) {
	var created *models.PointTransaction
	repo := &stubRepo{
		createFn: func(ctx context.Context, txn *models.PointTransaction) error {
			created = txn
			return nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	txn, err := svc.Record(context.Background(), RecordTransactionInput{
		DriverUserID: uuid.New(),
		OrgID:        uuid.New(),
		ActorUserID:  uuid.New(),
		Amount:       -25,
		Source:       enums.TransactionSourceManual,
		Reason:       "  safety violation  ",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if created == nil {
		t.Fatal("expected repo create call")
	}
	if txn.Reason != "safety violation" {
		t.Fatalf("expected trimmed reason, got %q", txn.Reason)
	}
}

func TestBalanceSumsLedger(t *testing.T) {
	driver := uuid.New()
	repo := &stubRepo{
		sumDriver: func(ctx context.Context, driverUserID uuid.UUID) (int64, error) {
			if driverUserID != driver {
				t.Fatalf("unexpected driver id %s", driverUserID)
			}
			return 340, nil
		},
	}
	svc, _ := NewService(repo)

	balance, err := svc.Balance(context.Background(), driver)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 340 {
		t.Fatalf("expected 340, got %d", balance)
	}
}

func TestHistoryEncodesNextCursor(t *testing.T) {
	next := pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &stubRepo{
		listFn: func(ctx context.Context, params listTransactionsParams) ([]models.PointTransaction, *pagination.Cursor, error) {
			return []models.PointTransaction{{ID: uuid.New()}}, &next, nil
		},
	}
	svc, _ := NewService(repo)

	result, err := svc.History(context.Background(), HistoryParams{DriverUserID: uuid.New(), Limit: 1})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if result.Cursor != pagination.EncodeCursor(next) {
		t.Fatalf("unexpected cursor %q", result.Cursor)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(result.Items))
	}
}

func TestHistoryRejectsBadCursor(t *testing.T) {
	svc, _ := NewService(&stubRepo{})
	_, err := svc.History(context.Background(), HistoryParams{DriverUserID: uuid.New(), Cursor: "!!!"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAwardedThisMonthUsesCalendarMonthStart(t *testing.T) {
	org := uuid.New()
	now := time.Date(2025, time.March, 17, 14, 30, 0, 0, time.UTC)
	var gotSince time.Time
	repo := &stubRepo{
		sumOrg: func(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
			gotSince = since
			return 480, nil
		},
	}
	svc, _ := NewService(repo)

	total, err := svc.AwardedThisMonth(context.Background(), org, now)
	if err != nil {
		t.Fatalf("awarded this month: %v", err)
	}
	if total != 480 {
		t.Fatalf("expected 480, got %d", total)
	}
	want := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !gotSince.Equal(want) {
		t.Fatalf("expected month start %v, got %v", want, gotSince)
	}
}

func TestDeductedThisMonthUsesCalendarMonthStart(t *testing.T) {
	org := uuid.New()
	now := time.Date(2025, time.March, 17, 14, 30, 0, 0, time.UTC)
	var gotSince time.Time
	repo := &stubRepo{
		sumOrgNeg: func(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
			gotSince = since
			return 120, nil
		},
	}
	svc, _ := NewService(repo)

	total, err := svc.DeductedThisMonth(context.Background(), org, now)
	if err != nil {
		t.Fatalf("deducted this month: %v", err)
	}
	if total != 120 {
		t.Fatalf("expected 120, got %d", total)
	}
	want := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !gotSince.Equal(want) {
		t.Fatalf("expected month start %v, got %v", want, gotSince)
	}
}
