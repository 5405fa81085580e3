package limits

import (
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
)

// Violation describes which organization bound a balance change would break.
// Projected is the value that would have resulted had the change applied.
type Violation struct {
	Kind      enums.LimitKind `json:"kind"`
	Limit     int             `json:"limit"`
	Amount    int             `json:"amount"`
	Projected int64           `json:"projected"`
}

// Err converts the violation into the coded error returned to clients.
func (v *Violation) Err() error {
	if v == nil {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeLimitExceeded, "organization point limit exceeded").WithDetails(v)
}

// Evaluate checks a proposed balance change against the organization's
// configured bounds and returns the first violation found, or nil when the
// change is allowed. Nil limit fields on the organization are not enforced.
//
// balance is the driver's current ledger sum; monthlyAwarded is the total the
// org has granted so far this calendar month. Evaluate never mutates state, so
// a rejected change leaves no trace.
func Evaluate(org *models.Organization, balance, monthlyAwarded int64, amount int) *Violation {
	if org == nil || amount == 0 {
		return nil
	}

	projected := balance + int64(amount)

	if amount > 0 {
		if org.PointUpperLimit != nil && projected > int64(*org.PointUpperLimit) {
			return &Violation{
				Kind:      enums.LimitKindUpper,
				Limit:     *org.PointUpperLimit,
				Amount:    amount,
				Projected: projected,
			}
		}
		if org.MonthlyPointLimit != nil && monthlyAwarded+int64(amount) > int64(*org.MonthlyPointLimit) {
			return &Violation{
				Kind:      enums.LimitKindMonthly,
				Limit:     *org.MonthlyPointLimit,
				Amount:    amount,
				Projected: monthlyAwarded + int64(amount),
			}
		}
		return nil
	}

	if org.PointLowerLimit != nil && projected < int64(*org.PointLowerLimit) {
		return &Violation{
			Kind:      enums.LimitKindLower,
			Limit:     *org.PointLowerLimit,
			Amount:    amount,
			Projected: projected,
		}
	}
	return nil
}
