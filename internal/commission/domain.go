// Package commission attributes sales credit for invoiced orders and tracks
// it from calculation through approval to disbursement.
package commission

import (
	"errors"
	"time"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
)

// DefaultRatePercent applies when no configured rate matches a lookup.
const DefaultRatePercent = 4.00

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("commission: not found")
	// ErrAlreadyCalculated indicates the order already has its one-and-only
	// commission row. Raised from the unique constraint on order_id.
	ErrAlreadyCalculated = errors.New("commission: order already calculated")
	// ErrNoValidCommissions indicates a payment request selected no rows that
	// are approved and owned by the named sales rep.
	ErrNoValidCommissions = errors.New("commission: no valid commissions selected")
	// ErrUnknownType indicates a commission type outside the known set.
	ErrUnknownType = errors.New("commission: unknown commission type")
	// ErrUnknownMethod indicates a payment method outside the known set.
	ErrUnknownMethod = errors.New("commission: unknown payment method")
)

// Type distinguishes how a sales rep earned credit for an order.
type Type string

const (
	// TypeDirectSale credits the rep who personally placed the order.
	TypeDirectSale Type = "direct_sale"
	// TypeAssignedCustomer credits the rep standing behind the customer when
	// no rep placed the order directly.
	TypeAssignedCustomer Type = "assigned_customer"
)

// Valid reports whether t is a known commission type.
func (t Type) Valid() bool {
	return t == TypeDirectSale || t == TypeAssignedCustomer
}

// CalculationStatus tracks a commission row through its monotonic lifecycle:
// calculated, then approved, then paid. There is no regression path.
type CalculationStatus string

const (
	StatusCalculated CalculationStatus = "calculated"
	StatusApproved   CalculationStatus = "approved"
	StatusPaid       CalculationStatus = "paid"
)

// PaymentMethod enumerates supported disbursement methods.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheck        PaymentMethod = "check"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheck:
		return true
	}
	return false
}

// Rate is one time-versioned commission rate. A nil SalesRepID marks the
// company-wide default for the type. At most one open-ended row exists per
// (rep, type) scope at a time; inserting a new override closes the previous
// one at the day before its effective_from.
type Rate struct {
	ID             int64
	SalesRepID     *int64
	Type           Type
	RatePercentage float64
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
	CreatedBy      int64
	CreatedAt      time.Time
}

// ActiveOn reports whether the rate covers the given day. Windows are
// day-granular, so the timestamp's time of day is ignored.
func (r Rate) ActiveOn(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !day.After(*r.EffectiveTo)
}

// Calculation is the single commission row an order can ever have.
type Calculation struct {
	ID             int64
	OrderID        int64
	SalesRepID     int64
	Type           Type
	OrderTotal     currency.Amount
	RatePercentage float64
	Amount         currency.Amount
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Status         CalculationStatus
	ApprovedBy     *int64
	PaymentID      *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Payment is one disbursement of approved commissions to a single rep.
type Payment struct {
	ID         int64
	Reference  string
	SalesRepID int64
	Total      currency.Amount
	Method     PaymentMethod
	PaidAt     time.Time
	PeriodFrom time.Time
	PeriodTo   time.Time
	Notes      *string
	CreatedBy  int64
	CreatedAt  time.Time
}

// PaymentItem links a payment to one of the calculations it settles.
type PaymentItem struct {
	ID            int64
	PaymentID     int64
	CalculationID int64
	Amount        currency.Amount
}

// InvoicedOrder is the calculator's view of one order eligible for
// commission in a period: the order joined with its invoice date and the
// customer's standing rep assignment.
type InvoicedOrder struct {
	OrderID       int64
	SalesRepID    *int64
	AssignedRepID *int64
	Total         currency.Amount
	InvoiceDate   time.Time
}
