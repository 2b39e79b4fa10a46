// Package customers manages customer master data and the append-only
// balance-adjustment ledger.
package customers

import (
	"errors"
	"time"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
)

var (
	// ErrNotFound indicates the customer does not exist.
	ErrNotFound = errors.New("customers: not found")
	// ErrInvalidAdjustmentKind indicates an unknown ledger entry kind.
	ErrInvalidAdjustmentKind = errors.New("customers: invalid adjustment kind")
)

// Customer model.
type Customer struct {
	ID                 int64
	Name               string
	Phone              string
	AssignedSalesRepID *int64
	Balance            currency.Amount
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AdjustmentKind enumerates balance ledger entry kinds.
type AdjustmentKind string

const (
	AdjustmentCredit         AdjustmentKind = "credit"
	AdjustmentDebit          AdjustmentKind = "debit"
	AdjustmentCorrection     AdjustmentKind = "correction"
	AdjustmentWriteOff       AdjustmentKind = "write_off"
	AdjustmentOpeningBalance AdjustmentKind = "opening_balance"
)

// Valid reports whether the kind is a known ledger entry kind.
func (k AdjustmentKind) Valid() bool {
	switch k {
	case AdjustmentCredit, AdjustmentDebit, AdjustmentCorrection, AdjustmentWriteOff, AdjustmentOpeningBalance:
		return true
	}
	return false
}

// BalanceAdjustment is an append-only ledger entry. Rows capture the balance
// before and after the change and are never mutated.
type BalanceAdjustment struct {
	ID              int64
	CustomerID      int64
	Kind            AdjustmentKind
	Amount          currency.Amount
	PreviousBalance currency.Amount
	NewBalance      currency.Amount
	Reason          string
	PerformedBy     int64
	CreatedAt       time.Time
}

// AdjustBalanceInput carries a requested ledger entry.
type AdjustBalanceInput struct {
	CustomerID int64
	Kind       AdjustmentKind
	Amount     currency.Amount
	Reason     string
}
