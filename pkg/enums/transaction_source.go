package enums

import "fmt"

// TransactionSource maps to the transaction_source enum in Postgres.
type TransactionSource string

const (
	TransactionSourceManual    TransactionSource = "manual"
	TransactionSourceRecurring TransactionSource = "recurring"
	TransactionSourceOrder     TransactionSource = "order"
)

var validTransactionSources = []TransactionSource{
	TransactionSourceManual,
	TransactionSourceRecurring,
	TransactionSourceOrder,
}

// String implements fmt.Stringer.
func (s TransactionSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionSource.
func (s TransactionSource) IsValid() bool {
	for _, candidate := range validTransactionSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresReason reports whether ledger entries with this source must carry a reason.
func (s TransactionSource) RequiresReason() bool {
	return s == TransactionSourceManual || s == TransactionSourceRecurring
}

// ParseTransactionSource converts raw input into a TransactionSource.
func ParseTransactionSource(value string) (TransactionSource, error) {
	for _, candidate := range validTransactionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction source %q", value)
}
