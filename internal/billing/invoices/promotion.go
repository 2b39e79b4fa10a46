package invoices

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cedarline-erp/cedarline-erp/internal/sales/orders"
)

// ReadinessChecker reports whether an order passes the invoice-eligibility
// rules. orders.ReadinessEvaluator is the production implementation.
type ReadinessChecker interface {
	Evaluate(ctx context.Context, orderID int64) (orders.ReadinessResult, error)
}

// Trigger promotes an order into an invoice when its status enters the
// promotable window and the order passes every eligibility rule. It is wired
// into the orders service as its PromotionHook, so promotion happens as a
// side effect of a status change and never blocks it.
type Trigger struct {
	svc       *Service
	evaluator ReadinessChecker
	logger    *slog.Logger
}

// NewTrigger builds the promotion hook.
func NewTrigger(svc *Service, evaluator ReadinessChecker, logger *slog.Logger) *Trigger {
	return &Trigger{svc: svc, evaluator: evaluator, logger: logger}
}

// OnStatusChange runs the promotion pipeline for one status transition.
// Every early exit is silent from the caller's point of view: the status
// change already happened and must stand regardless of what promotion does.
func (t *Trigger) OnStatusChange(ctx context.Context, orderID int64, newStatus orders.OrderStatus, actorID int64) (*orders.PromotionResult, error) {
	if !newStatus.Promotable() {
		return nil, nil
	}

	res, err := t.evaluator.Evaluate(ctx, orderID)
	if err != nil {
		t.logger.Error("promotion readiness check failed", "order_id", orderID, "error", err)
		return nil, err
	}
	if !res.Ready {
		t.logger.Info("order not ready for invoicing",
			"order_id", orderID,
			"reasons", joinReasons(res.Reasons),
		)
		return &orders.PromotionResult{Synced: false, Message: "order not ready: " + joinReasons(res.Reasons)}, nil
	}

	// First promotion only. Later edits flow to the invoice through explicit
	// re-sync, not through repeated status changes.
	if _, err := t.svc.GetByOrderID(ctx, orderID); err == nil {
		return &orders.PromotionResult{Synced: false, Message: "order already invoiced"}, nil
	} else if !errors.Is(err, ErrNotFound) {
		t.logger.Error("promotion invoice lookup failed", "order_id", orderID, "error", err)
		return nil, err
	}

	sync, err := t.svc.Sync(ctx, orderID, actorID)
	if err != nil {
		t.logger.Error("invoice promotion failed", "order_id", orderID, "error", err)
		return nil, err
	}
	t.logger.Info("order promoted to invoice", "order_id", orderID, "invoice_id", sync.InvoiceID)
	return &orders.PromotionResult{Synced: true, InvoiceID: sync.InvoiceID, Message: sync.Message}, nil
}

func joinReasons(reasons []orders.ReasonCode) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}
