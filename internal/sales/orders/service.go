package orders

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// Auditor records mutations for later review.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles sales order business logic.
type Service struct {
	repo      Repository
	promotion PromotionHook
	audit     Auditor
}

// NewService builds a Service instance. The promotion hook may be nil; status
// changes then never auto-promote.
func NewService(repo Repository, promotion PromotionHook, audit Auditor) *Service {
	return &Service{repo: repo, promotion: promotion, audit: audit}
}

// Create persists a new draft order with its lines.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, createdBy int64) (*Order, error) {
	total := totalOf(req.Items)

	order := Order{
		CustomerID:     req.CustomerID,
		SalesRepID:     req.SalesRepID,
		ExchangeRateID: req.ExchangeRateID,
		Status:         StatusDraft,
		Total:          total,
		Notes:          req.Notes,
		CreatedBy:      createdBy,
	}

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id

		for _, line := range req.Items {
			item := OrderItem{
				OrderID:         orderID,
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				UnitPriceUSD:    line.UnitPriceUSD,
				UnitPriceLBP:    line.UnitPriceLBP,
				DiscountPercent: line.DiscountPercent,
			}
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, createdBy, "create", orderID, nil)
	return s.repo.Get(ctx, orderID)
}

// Update modifies a draft order. A provided Items slice fully replaces the
// existing lines and recomputes totals.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest, actorID int64) (*Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft orders can be edited", ErrInvalidStatus)
	}

	updates := make(map[string]interface{})
	if req.CustomerID != nil {
		updates["customer_id"] = *req.CustomerID
	}
	if req.SalesRepID != nil {
		updates["sales_rep_id"] = *req.SalesRepID
	}
	if req.ExchangeRateID != nil {
		updates["exchange_rate_id"] = *req.ExchangeRateID
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var itemsToInsert []OrderItem
	if req.Items != nil {
		total := totalOf(*req.Items)
		updates["total_usd"] = total.USD
		updates["total_lbp"] = total.LBP
		for _, line := range *req.Items {
			itemsToInsert = append(itemsToInsert, OrderItem{
				OrderID:         id,
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				UnitPriceUSD:    line.UnitPriceUSD,
				UnitPriceLBP:    line.UnitPriceLBP,
				DiscountPercent: line.DiscountPercent,
			})
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return err
			}
		}
		if req.Items != nil {
			if err := repo.DeleteItems(ctx, id); err != nil {
				return err
			}
			for _, item := range itemsToInsert {
				if _, err := repo.InsertItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.recordAudit(ctx, actorID, "update", id, nil)
	return s.repo.Get(ctx, id)
}

// ChangeStatus moves the order through its lifecycle and fires the promotion
// hook. A promotion that declines to run is not an error.
func (s *Service) ChangeStatus(ctx context.Context, id int64, newStatus OrderStatus, actorID int64) (*Order, *PromotionResult, error) {
	if !newStatus.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, newStatus)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if existing.Status == StatusCancelled || existing.Status == StatusDelivered {
		return nil, nil, fmt.Errorf("%w: order is already final", ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, nil, fmt.Errorf("change status: %w", err)
	}
	s.recordAudit(ctx, actorID, "status_change", id, map[string]any{
		"from": string(existing.Status),
		"to":   string(newStatus),
	})

	var promotion *PromotionResult
	if s.promotion != nil {
		promotion, err = s.promotion.OnStatusChange(ctx, id, newStatus, actorID)
		if err != nil {
			// Promotion failure never reverts the status change; the order can
			// still be invoiced manually.
			promotion = &PromotionResult{Synced: false, Message: shared.UserSafeMessage(err)}
		}
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, promotion, nil
}

// Get returns a single order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
}

// totalOf sums discounted line totals per currency leg.
func totalOf(items []CreateOrderItemReq) currency.Amount {
	var total currency.Amount
	for _, line := range items {
		factor := line.Quantity * (1 - line.DiscountPercent/100)
		total = total.Add(currency.Amount{
			USD: line.UnitPriceUSD * factor,
			LBP: line.UnitPriceLBP * factor,
		})
	}
	return total
}
