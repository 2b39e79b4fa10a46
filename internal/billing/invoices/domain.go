// Package invoices owns invoice records and the order-to-invoice
// synchronisation workflow.
package invoices

import (
	"errors"
	"fmt"
	"time"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoices: not found")
	// ErrDuplicateOrder indicates an invoice already exists for the order.
	// The storage layer raises it from the unique constraint on order_id.
	ErrDuplicateOrder = errors.New("invoices: order already invoiced")
	// ErrImmutable indicates the invoice is paid or voided and can no longer
	// be re-synced.
	ErrImmutable = errors.New("invoices: invoice is immutable")
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "draft"
	StatusPending InvoiceStatus = "pending"
	StatusIssued  InvoiceStatus = "issued"
	StatusPaid    InvoiceStatus = "paid"
	StatusVoided  InvoiceStatus = "voided"
)

// Mutable reports whether the invoice can still be re-synced from its order.
func (s InvoiceStatus) Mutable() bool {
	return s != StatusPaid && s != StatusVoided
}

// Invoice model. OrderID is unique: one invoice per order, ever.
type Invoice struct {
	ID        int64
	Number    string
	OrderID   int64
	Status    InvoiceStatus
	Total     currency.Amount
	CreatedBy int64
	IssuedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceItem mirrors an order line at sync time. Items are fully replaced on
// each re-sync; per-item history is intentionally not kept.
type InvoiceItem struct {
	ID              int64
	InvoiceID       int64
	ProductID       *int64
	Quantity        float64
	UnitPriceUSD    float64
	UnitPriceLBP    float64
	DiscountPercent float64
}

// SyncResult reports the outcome of one synchronisation attempt.
type SyncResult struct {
	Success   bool   `json:"success"`
	InvoiceID int64  `json:"invoice_id,omitempty"`
	Message   string `json:"message"`
}

// NumberForOrder derives the deterministic invoice number for an order.
func NumberForOrder(orderID int64) string {
	return fmt.Sprintf("INV-%06d", orderID)
}
