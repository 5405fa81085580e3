package limits

import (
	"testing"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestEvaluateUpperBound(t *testing.T) {
	org := &models.Organization{PointUpperLimit: intPtr(100)}

	if v := Evaluate(org, 90, 0, 10); v != nil {
		t.Fatalf("award landing exactly on the cap must pass, got %+v", v)
	}
	v := Evaluate(org, 90, 0, 20)
	if v == nil {
		t.Fatal("expected upper bound violation")
	}
	if v.Kind != enums.LimitKindUpper || v.Limit != 100 || v.Projected != 110 {
		t.Fatalf("unexpected violation %+v", v)
	}
}

func TestEvaluateMonthlyBound(t *testing.T) {
	org := &models.Organization{MonthlyPointLimit: intPtr(500)}

	if v := Evaluate(org, 0, 480, 20); v != nil {
		t.Fatalf("award landing exactly on the monthly cap must pass, got %+v", v)
	}
	v := Evaluate(org, 0, 480, 30)
	if v == nil {
		t.Fatal("expected monthly bound violation")
	}
	if v.Kind != enums.LimitKindMonthly || v.Limit != 500 || v.Projected != 510 {
		t.Fatalf("unexpected violation %+v", v)
	}
}

func TestEvaluateLowerBound(t *testing.T) {
	org := &models.Organization{PointLowerLimit: intPtr(0)}

	if v := Evaluate(org, 30, 0, -30); v != nil {
		t.Fatalf("deduction landing exactly on the floor must pass, got %+v", v)
	}
	v := Evaluate(org, 30, 0, -31)
	if v == nil {
		t.Fatal("expected lower bound violation")
	}
	if v.Kind != enums.LimitKindLower || v.Projected != -1 {
		t.Fatalf("unexpected violation %+v", v)
	}
}

func TestEvaluateNilLimitsUnenforced(t *testing.T) {
	org := &models.Organization{}
	if v := Evaluate(org, 1_000_000, 1_000_000, 500); v != nil {
		t.Fatalf("nil limits must not be enforced, got %+v", v)
	}
	if v := Evaluate(org, -50, 0, -500); v != nil {
		t.Fatalf("nil lower limit must not be enforced, got %+v", v)
	}
}

func TestEvaluateDeductionsIgnoreMonthlyBudget(t *testing.T) {
	org := &models.Organization{MonthlyPointLimit: intPtr(100)}
	if v := Evaluate(org, 500, 100, -50); v != nil {
		t.Fatalf("deductions must not consume monthly headroom, got %+v", v)
	}
}

func TestViolationErr(t *testing.T) {
	v := &Violation{Kind: enums.LimitKindUpper, Limit: 100, Amount: 20, Projected: 110}
	err := v.Err()
	typed := pkgerrors.As(err)
	if typed.Code() != pkgerrors.CodeLimitExceeded {
		t.Fatalf("expected limit exceeded code, got %v", typed.Code())
	}
	if typed.Details() == nil {
		t.Fatal("expected violation details attached")
	}

	var none *Violation
	if none.Err() != nil {
		t.Fatal("nil violation must produce nil error")
	}
}
