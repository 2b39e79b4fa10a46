package commission

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// PaymentInput is one disbursement request.
type PaymentInput struct {
	SalesRepID     int64
	CalculationIDs []int64
	Method         PaymentMethod
	PaidAt         time.Time
	Reference      string
	Notes          *string
}

// PaymentResult reports a recorded disbursement.
type PaymentResult struct {
	PaymentID int64           `json:"payment_id"`
	Reference string          `json:"reference"`
	Total     currency.Amount `json:"total"`
	Count     int             `json:"count"`
}

// Auditor records mutations for later review.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Payer groups approved commissions into disbursements.
type Payer struct {
	repo  Repository
	audit Auditor
}

// NewPayer builds a Payer.
func NewPayer(repo Repository, audit Auditor) *Payer {
	return &Payer{repo: repo, audit: audit}
}

// RecordPayment settles a set of approved calculations for one rep in a
// single transaction: payment header, one item per calculation, and the
// status flip to paid all land together or not at all. Selected rows that
// are not approved or belong to another rep are silently dropped; an empty
// remainder fails with ErrNoValidCommissions.
func (p *Payer) RecordPayment(ctx context.Context, input PaymentInput, actorID int64) (PaymentResult, error) {
	if !input.Method.Valid() {
		return PaymentResult{}, ErrUnknownMethod
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now().UTC()
	}

	var result PaymentResult
	err := p.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		calcs, err := repo.ListApprovedForRep(ctx, input.SalesRepID, input.CalculationIDs)
		if err != nil {
			return err
		}
		if len(calcs) == 0 {
			return ErrNoValidCommissions
		}

		var (
			total      currency.Amount
			periodFrom = calcs[0].PeriodStart
			periodTo   = calcs[0].PeriodEnd
			ids        = make([]int64, 0, len(calcs))
		)
		for _, c := range calcs {
			total = total.Add(c.Amount)
			if c.PeriodStart.Before(periodFrom) {
				periodFrom = c.PeriodStart
			}
			if c.PeriodEnd.After(periodTo) {
				periodTo = c.PeriodEnd
			}
			ids = append(ids, c.ID)
		}

		reference := input.Reference
		if reference == "" {
			seq, err := repo.NextPaymentSeq(ctx)
			if err != nil {
				return err
			}
			reference = paymentReference(input.PaidAt, input.SalesRepID, seq)
		}

		paymentID, err := repo.InsertPayment(ctx, Payment{
			Reference:  reference,
			SalesRepID: input.SalesRepID,
			Total:      total,
			Method:     input.Method,
			PaidAt:     input.PaidAt,
			PeriodFrom: periodFrom,
			PeriodTo:   periodTo,
			Notes:      input.Notes,
			CreatedBy:  actorID,
		})
		if err != nil {
			return err
		}

		for _, c := range calcs {
			if _, err := repo.InsertPaymentItem(ctx, PaymentItem{
				PaymentID:     paymentID,
				CalculationID: c.ID,
				Amount:        c.Amount,
			}); err != nil {
				return err
			}
		}

		moved, err := repo.MarkCalculationsPaid(ctx, ids, paymentID)
		if err != nil {
			return err
		}
		if moved != int64(len(ids)) {
			// A row changed state between the select and the update; roll
			// everything back rather than pay it twice.
			return fmt.Errorf("commission: expected to mark %d rows paid, marked %d", len(ids), moved)
		}

		result = PaymentResult{
			PaymentID: paymentID,
			Reference: reference,
			Total:     total,
			Count:     len(calcs),
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	if p.audit != nil {
		_ = p.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "commission_payment",
			Entity:   "commission_payment",
			EntityID: strconv.FormatInt(result.PaymentID, 10),
			Meta: map[string]any{
				"sales_rep_id": input.SalesRepID,
				"reference":    result.Reference,
				"count":        result.Count,
				"total_usd":    result.Total.USD,
				"total_lbp":    result.Total.LBP,
			},
		})
	}
	return result, nil
}

// paymentReference builds COMM-YYYYMMDD-<rep>-<seq>. The sequence makes
// references unique without a collision check.
func paymentReference(paidAt time.Time, salesRepID, seq int64) string {
	return fmt.Sprintf("COMM-%s-%d-%03d", paidAt.Format("20060102"), salesRepID, seq)
}
