package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cedarline-erp/cedarline-erp/internal/sales/orders"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// OrderSource is the slice of the orders repository the synchroniser needs.
type OrderSource interface {
	Get(ctx context.Context, id int64) (*orders.Order, error)
}

// Auditor records mutations for later review.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles invoice business logic, chiefly keeping invoices in step
// with their orders.
type Service struct {
	repo   Repository
	source OrderSource
	audit  Auditor
}

// NewService builds a Service instance.
func NewService(repo Repository, source OrderSource, audit Auditor) *Service {
	return &Service{repo: repo, source: source, audit: audit}
}

// Get returns an invoice together with its line items.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, []InvoiceItem, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return inv, items, nil
}

// GetByOrderID returns the invoice for an order, if one exists.
func (s *Service) GetByOrderID(ctx context.Context, orderID int64) (*Invoice, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// List returns invoices matching the filter plus the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	return s.repo.List(ctx, f)
}

// Sync makes the invoice for an order an exact mirror of the order's current
// totals and line items, creating the invoice on first call. The whole
// replace runs in one transaction so readers never observe a half-synced
// invoice. Paid and voided invoices are frozen and refuse re-sync.
func (s *Service) Sync(ctx context.Context, orderID, actorID int64) (SyncResult, error) {
	order, err := s.source.Get(ctx, orderID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load order %d: %w", orderID, err)
	}

	var result SyncResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetByOrderID(ctx, orderID)
		switch {
		case err == nil:
			if !existing.Status.Mutable() {
				return ErrImmutable
			}
			if err := repo.UpdateTotals(ctx, existing.ID, order.Total); err != nil {
				return err
			}
			result = SyncResult{Success: true, InvoiceID: existing.ID, Message: "invoice updated"}
		case errors.Is(err, ErrNotFound):
			id, err := repo.Insert(ctx, Invoice{
				Number:    NumberForOrder(orderID),
				OrderID:   orderID,
				Status:    StatusDraft,
				Total:     order.Total,
				CreatedBy: actorID,
			})
			if errors.Is(err, ErrDuplicateOrder) {
				// Lost a race with a concurrent sync; fall back to the
				// winner's row and update it instead.
				existing, ferr := repo.GetByOrderID(ctx, orderID)
				if ferr != nil {
					return ferr
				}
				if !existing.Status.Mutable() {
					return ErrImmutable
				}
				if err := repo.UpdateTotals(ctx, existing.ID, order.Total); err != nil {
					return err
				}
				id = existing.ID
				result = SyncResult{Success: true, InvoiceID: id, Message: "invoice updated"}
			} else if err != nil {
				return err
			} else {
				result = SyncResult{Success: true, InvoiceID: id, Message: "invoice created"}
			}
		default:
			return err
		}

		// Full line replace; item-level history is not preserved.
		if err := repo.DeleteItems(ctx, result.InvoiceID); err != nil {
			return err
		}
		for _, it := range order.Items {
			if _, err := repo.InsertItem(ctx, InvoiceItem{
				InvoiceID:       result.InvoiceID,
				ProductID:       it.ProductID,
				Quantity:        it.Quantity,
				UnitPriceUSD:    it.UnitPriceUSD,
				UnitPriceLBP:    it.UnitPriceLBP,
				DiscountPercent: it.DiscountPercent,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoice_sync",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(result.InvoiceID, 10),
			Meta: map[string]any{
				"order_id":  orderID,
				"message":   result.Message,
				"total_usd": order.Total.USD,
				"total_lbp": order.Total.LBP,
			},
		})
	}
	return result, nil
}

// ChangeStatus moves an invoice through its lifecycle. Issuing stamps
// issued_at, as does paying an invoice that was never issued, so every paid
// invoice carries the date the commission batch selects on. Paid and voided
// are terminal.
func (s *Service) ChangeStatus(ctx context.Context, id, actorID int64, status InvoiceStatus) error {
	switch status {
	case StatusDraft, StatusPending, StatusIssued, StatusPaid, StatusVoided:
	default:
		return fmt.Errorf("invoices: unknown status %q", status)
	}

	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !inv.Status.Mutable() {
		return ErrImmutable
	}

	var issuedAt *time.Time
	if (status == StatusIssued || status == StatusPaid) && inv.IssuedAt == nil {
		now := time.Now()
		issuedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, status, issuedAt); err != nil {
		return err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoice_status_change",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"from": string(inv.Status),
				"to":   string(status),
			},
		})
	}
	return nil
}
