package orders

import (
	"context"
	"errors"
)

// ReasonCode identifies a single failed invoice-eligibility rule.
type ReasonCode string

const (
	ReasonOrderNotFound        ReasonCode = "order_not_found"
	ReasonNoCustomer           ReasonCode = "no_customer"
	ReasonNoSalesRep           ReasonCode = "no_sales_rep"
	ReasonTotalZeroOrNegative  ReasonCode = "total_zero_or_negative"
	ReasonMissingExchangeRate  ReasonCode = "missing_exchange_rate"
	ReasonNoItems              ReasonCode = "no_items"
	ReasonItemMissingProduct   ReasonCode = "item_missing_product"
	ReasonItemQuantityInvalid  ReasonCode = "item_quantity_zero_or_negative"
	ReasonItemPriceInvalid     ReasonCode = "item_price_zero_or_negative"
)

// reasonDescriptions maps each code to its operator-facing description.
var reasonDescriptions = map[ReasonCode]string{
	ReasonOrderNotFound:       "Order does not exist",
	ReasonNoCustomer:          "Order has no customer",
	ReasonNoSalesRep:          "Order has no sales representative",
	ReasonTotalZeroOrNegative: "Order total must be positive in at least one currency",
	ReasonMissingExchangeRate: "Multi-currency order requires an exchange rate",
	ReasonNoItems:             "Order has no line items",
	ReasonItemMissingProduct:  "A line item has no product",
	ReasonItemQuantityInvalid: "A line item has zero or negative quantity",
	ReasonItemPriceInvalid:    "A line item has no positive unit price",
}

// Describe returns the human-readable description for a reason code.
func (c ReasonCode) Describe() string {
	if d, ok := reasonDescriptions[c]; ok {
		return d
	}
	return string(c)
}

// ReadinessResult is the outcome of an invoice-eligibility evaluation.
// Ready is true exactly when Reasons is empty.
type ReadinessResult struct {
	Ready   bool
	Reasons []ReasonCode
}

// ReadinessEvaluator validates orders against the invoice-eligibility rules.
// Evaluation is read-only; callers persist outcomes separately if needed.
type ReadinessEvaluator struct {
	repo Repository
}

// NewReadinessEvaluator builds an evaluator over the given repository.
func NewReadinessEvaluator(repo Repository) *ReadinessEvaluator {
	return &ReadinessEvaluator{repo: repo}
}

// Evaluate loads the order and checks every eligibility rule. A missing order
// is terminal: no further rules run.
func (e *ReadinessEvaluator) Evaluate(ctx context.Context, orderID int64) (ReadinessResult, error) {
	order, err := e.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ReadinessResult{Ready: false, Reasons: []ReasonCode{ReasonOrderNotFound}}, nil
		}
		return ReadinessResult{}, err
	}
	reasons := EvaluateOrder(order)
	return ReadinessResult{Ready: len(reasons) == 0, Reasons: reasons}, nil
}

// EvaluateOrder applies the eligibility rules to an in-memory order. Header
// rules are independent and all evaluated; item rules stop at the first
// offending item.
func EvaluateOrder(o *Order) []ReasonCode {
	var reasons []ReasonCode

	if o.CustomerID == nil {
		reasons = append(reasons, ReasonNoCustomer)
	}
	if o.SalesRepID == nil {
		reasons = append(reasons, ReasonNoSalesRep)
	}
	if !o.Total.HasValue() {
		reasons = append(reasons, ReasonTotalZeroOrNegative)
	}
	if o.Total.IsMultiCurrency() && o.ExchangeRateID == nil {
		reasons = append(reasons, ReasonMissingExchangeRate)
	}
	if len(o.Items) == 0 {
		reasons = append(reasons, ReasonNoItems)
	}

	for _, item := range o.Items {
		if item.ProductID == nil {
			reasons = append(reasons, ReasonItemMissingProduct)
			break
		}
		if item.Quantity <= 0 {
			reasons = append(reasons, ReasonItemQuantityInvalid)
			break
		}
		if item.UnitPriceUSD <= 0 && item.UnitPriceLBP <= 0 {
			reasons = append(reasons, ReasonItemPriceInvalid)
			break
		}
	}

	return reasons
}
