package commission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
)

func seedApprovedCalculation(repo *memoryCommissionRepo, orderID, repID int64, amount currency.Amount, period ...time.Time) int64 {
	repo.nextCalcID++
	c := &Calculation{
		ID:          repo.nextCalcID,
		OrderID:     orderID,
		SalesRepID:  repID,
		Type:        TypeDirectSale,
		Amount:      amount,
		PeriodStart: date(2026, time.June, 1),
		PeriodEnd:   date(2026, time.June, 30),
		Status:      StatusApproved,
	}
	if len(period) == 2 {
		c.PeriodStart, c.PeriodEnd = period[0], period[1]
	}
	repo.calculations[c.ID] = c
	return c.ID
}

func TestRecordPaymentSettlesApprovedRows(t *testing.T) {
	repo := newMemoryCommissionRepo()
	id1 := seedApprovedCalculation(repo, 42, 7, currency.Amount{USD: 4})
	id2 := seedApprovedCalculation(repo, 43, 7, currency.Amount{USD: 6, LBP: 500_000})
	payer := NewPayer(repo, nil)

	result, err := payer.RecordPayment(context.Background(), PaymentInput{
		SalesRepID:     7,
		CalculationIDs: []int64{id1, id2},
		Method:         MethodBankTransfer,
		PaidAt:         date(2026, time.July, 5),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
	require.Equal(t, 10.0, result.Total.USD)
	require.Equal(t, 500_000.0, result.Total.LBP)
	require.Equal(t, "COMM-20260705-7-001", result.Reference)

	payment := repo.payments[result.PaymentID]
	require.NotNil(t, payment)
	require.Equal(t, int64(7), payment.SalesRepID)
	require.Equal(t, 10.0, payment.Total.USD)
	require.Len(t, repo.paymentItems, 2)

	for _, id := range []int64{id1, id2} {
		c, err := repo.GetCalculation(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StatusPaid, c.Status)
		require.Equal(t, result.PaymentID, *c.PaymentID)
	}
}

func TestRecordPaymentFiltersForeignAndUnapprovedRows(t *testing.T) {
	repo := newMemoryCommissionRepo()
	owned := seedApprovedCalculation(repo, 42, 7, currency.Amount{USD: 4})
	foreign := seedApprovedCalculation(repo, 43, 9, currency.Amount{USD: 6})

	repo.nextCalcID++
	unapproved := repo.nextCalcID
	repo.calculations[unapproved] = &Calculation{
		ID: unapproved, OrderID: 44, SalesRepID: 7,
		Amount:      currency.Amount{USD: 8},
		PeriodStart: date(2026, time.June, 1), PeriodEnd: date(2026, time.June, 30),
		Status:      StatusCalculated,
	}
	payer := NewPayer(repo, nil)

	result, err := payer.RecordPayment(context.Background(), PaymentInput{
		SalesRepID:     7,
		CalculationIDs: []int64{owned, foreign, unapproved},
		Method:         MethodCash,
		PaidAt:         date(2026, time.July, 5),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	require.Equal(t, 4.0, result.Total.USD)

	c, err := repo.GetCalculation(context.Background(), foreign)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, c.Status)
}

func TestRecordPaymentFailsWhenNothingValid(t *testing.T) {
	repo := newMemoryCommissionRepo()
	seedApprovedCalculation(repo, 42, 9, currency.Amount{USD: 4})
	payer := NewPayer(repo, nil)

	_, err := payer.RecordPayment(context.Background(), PaymentInput{
		SalesRepID:     7,
		CalculationIDs: []int64{1},
		Method:         MethodCash,
		PaidAt:         date(2026, time.July, 5),
	}, 1)
	require.ErrorIs(t, err, ErrNoValidCommissions)
	require.Empty(t, repo.payments)
	require.Empty(t, repo.paymentItems)
}

func TestRecordPaymentSpansSelectedPeriods(t *testing.T) {
	repo := newMemoryCommissionRepo()
	id1 := seedApprovedCalculation(repo, 42, 7, currency.Amount{USD: 4},
		date(2026, time.April, 1), date(2026, time.April, 30))
	id2 := seedApprovedCalculation(repo, 43, 7, currency.Amount{USD: 6},
		date(2026, time.June, 1), date(2026, time.June, 30))
	payer := NewPayer(repo, nil)

	result, err := payer.RecordPayment(context.Background(), PaymentInput{
		SalesRepID:     7,
		CalculationIDs: []int64{id1, id2},
		Method:         MethodCheck,
		PaidAt:         date(2026, time.July, 5),
	}, 1)
	require.NoError(t, err)

	payment := repo.payments[result.PaymentID]
	require.Equal(t, date(2026, time.April, 1), payment.PeriodFrom)
	require.Equal(t, date(2026, time.June, 30), payment.PeriodTo)
}

func TestRecordPaymentRejectsUnknownMethod(t *testing.T) {
	payer := NewPayer(newMemoryCommissionRepo(), nil)

	_, err := payer.RecordPayment(context.Background(), PaymentInput{
		SalesRepID:     7,
		CalculationIDs: []int64{1},
		Method:         PaymentMethod("crypto"),
	}, 1)
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRecordPaymentHonoursExplicitReference(t *testing.T) {
	repo := newMemoryCommissionRepo()
	id := seedApprovedCalculation(repo, 42, 7, currency.Amount{USD: 4})
	payer := NewPayer(repo, nil)

	result, err := payer.RecordPayment(context.Background(), PaymentInput{
		SalesRepID:     7,
		CalculationIDs: []int64{id},
		Method:         MethodCash,
		PaidAt:         date(2026, time.July, 5),
		Reference:      "COMM-MANUAL-1",
	}, 1)
	require.NoError(t, err)
	require.Equal(t, "COMM-MANUAL-1", result.Reference)
	require.Equal(t, int64(0), repo.paymentSeq)
}
