// Package orders manages sales orders and their invoice-readiness rules.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
)

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: not found")
	// ErrInvalidStatus indicates a disallowed status transition.
	ErrInvalidStatus = errors.New("orders: invalid status transition")
)

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	StatusDraft       OrderStatus = "draft"
	StatusConfirmed   OrderStatus = "confirmed"
	StatusReadyToShip OrderStatus = "ready_to_ship"
	StatusShipped     OrderStatus = "shipped"
	StatusDelivered   OrderStatus = "delivered"
	StatusCancelled   OrderStatus = "cancelled"
)

// Valid reports whether s is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusReadyToShip, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Promotable reports whether a transition into s should attempt automatic
// invoice promotion. The allow-list is fixed; other transitions never
// auto-promote.
func (s OrderStatus) Promotable() bool {
	switch s {
	case StatusConfirmed, StatusReadyToShip, StatusShipped:
		return true
	}
	return false
}

// Order model.
type Order struct {
	ID             int64
	CustomerID     *int64
	SalesRepID     *int64
	ExchangeRateID *int64
	Status         OrderStatus
	Total          currency.Amount
	Notes          *string
	Items          []OrderItem
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem model. Unit prices carry both currency legs; at least one must be
// positive for the order to be invoiceable.
type OrderItem struct {
	ID              int64
	OrderID         int64
	ProductID       *int64
	Quantity        float64
	UnitPriceUSD    float64
	UnitPriceLBP    float64
	DiscountPercent float64
}

// PromotionResult reports the outcome of an automatic invoice promotion.
type PromotionResult struct {
	Synced    bool
	InvoiceID int64
	Message   string
}

// PromotionHook is invoked after a successful status change. The billing
// package supplies the implementation; a nil result means no promotion ran.
type PromotionHook interface {
	OnStatusChange(ctx context.Context, orderID int64, newStatus OrderStatus, actorID int64) (*PromotionResult, error)
}
