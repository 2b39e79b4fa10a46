package orders

import "time"

// CreateOrderItemReq is one requested line.
type CreateOrderItemReq struct {
	ProductID       *int64  `json:"product_id"`
	Quantity        float64 `json:"quantity"`
	UnitPriceUSD    float64 `json:"unit_price_usd"`
	UnitPriceLBP    float64 `json:"unit_price_lbp"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

// CreateOrderRequest carries a new order.
type CreateOrderRequest struct {
	CustomerID     *int64               `json:"customer_id"`
	SalesRepID     *int64               `json:"sales_rep_id"`
	ExchangeRateID *int64               `json:"exchange_rate_id"`
	Notes          *string              `json:"notes"`
	Items          []CreateOrderItemReq `json:"items" validate:"dive"`
}

// UpdateOrderRequest carries a partial update. A non-nil Items slice replaces
// every existing line.
type UpdateOrderRequest struct {
	CustomerID     *int64                `json:"customer_id"`
	SalesRepID     *int64                `json:"sales_rep_id"`
	ExchangeRateID *int64                `json:"exchange_rate_id"`
	Notes          *string               `json:"notes"`
	Items          *[]CreateOrderItemReq `json:"items" validate:"omitempty,dive"`
}

// ChangeStatusRequest moves an order through its lifecycle.
type ChangeStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
}

// ListOrdersRequest filters the order list.
type ListOrdersRequest struct {
	CustomerID *int64
	SalesRepID *int64
	Status     *OrderStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// StatusChangeResponse is the API payload for a status change, including the
// promotion outcome when one ran.
type StatusChangeResponse struct {
	Order     *Order           `json:"order"`
	Promotion *PromotionResult `json:"promotion,omitempty"`
}

// ReadinessResponse is the API payload for readiness preview.
type ReadinessResponse struct {
	Ready   bool     `json:"ready"`
	Reasons []Reason `json:"reasons"`
}

// Reason pairs a code with its description for display.
type Reason struct {
	Code        ReasonCode `json:"code"`
	Description string     `json:"description"`
}
