package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// Auditor records mutations for later review.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles customer business logic.
type Service struct {
	repo  Repository
	audit Auditor
}

// NewService builds a Service instance.
func NewService(repo Repository, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers, name ordered.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, limit, offset)
}

// AdjustBalance appends a ledger entry and moves the balance snapshot.
// Entries are immutable once written; a mistake is fixed by a follow-up
// correction entry, not an update.
func (s *Service) AdjustBalance(ctx context.Context, input AdjustBalanceInput, actorID int64) (*BalanceAdjustment, error) {
	if !input.Kind.Valid() {
		return nil, ErrInvalidAdjustmentKind
	}
	if actorID == 0 {
		return nil, shared.ErrActorMissing
	}
	if input.Reason == "" {
		return nil, errors.New("customers: adjustment reason required")
	}

	cust, err := s.repo.Get(ctx, input.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	adj := BalanceAdjustment{
		CustomerID:      input.CustomerID,
		Kind:            input.Kind,
		Amount:          input.Amount,
		PreviousBalance: cust.Balance,
		NewBalance:      applyAdjustment(cust.Balance, input.Kind, input.Amount),
		Reason:          input.Reason,
		PerformedBy:     actorID,
	}

	id, err := s.repo.RecordAdjustment(ctx, adj)
	if err != nil {
		return nil, fmt.Errorf("record adjustment: %w", err)
	}
	adj.ID = id

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "balance_adjustment",
			Entity:   "customer",
			EntityID: strconv.FormatInt(input.CustomerID, 10),
			Meta: map[string]any{
				"kind":       string(input.Kind),
				"amount_usd": input.Amount.USD,
				"amount_lbp": input.Amount.LBP,
			},
		})
	}

	return &adj, nil
}

// ListAdjustments returns the ledger for one customer, newest first.
func (s *Service) ListAdjustments(ctx context.Context, customerID int64) ([]BalanceAdjustment, error) {
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, customerID)
}

// applyAdjustment computes the post-entry balance. Debits grow what the
// customer owes, credits and write-offs shrink it, corrections and opening
// balances set the snapshot outright.
func applyAdjustment(balance currency.Amount, kind AdjustmentKind, amount currency.Amount) currency.Amount {
	switch kind {
	case AdjustmentDebit:
		return balance.Add(amount)
	case AdjustmentCredit, AdjustmentWriteOff:
		return currency.Amount{USD: balance.USD - amount.USD, LBP: balance.LBP - amount.LBP}
	case AdjustmentCorrection, AdjustmentOpeningBalance:
		return amount
	}
	return balance
}
