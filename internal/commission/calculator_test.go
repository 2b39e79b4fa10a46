package commission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/platform/cache"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

type memoryCommissionRepo struct {
	rates          []Rate
	invoiced       []InvoicedOrder
	calculations   map[int64]*Calculation
	payments       map[int64]*Payment
	paymentItems   []PaymentItem
	nextRateID     int64
	nextCalcID     int64
	nextPaymentID  int64
	nextItemID     int64
	paymentSeq     int64
	failOrderIDs   map[int64]bool
}

func newMemoryCommissionRepo() *memoryCommissionRepo {
	return &memoryCommissionRepo{
		calculations: make(map[int64]*Calculation),
		payments:     make(map[int64]*Payment),
		failOrderIDs: make(map[int64]bool),
	}
}

func (r *memoryCommissionRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryCommissionRepo) ActiveRate(ctx context.Context, salesRepID *int64, typ Type, asOf time.Time) (*Rate, error) {
	var best *Rate
	for i := range r.rates {
		rate := &r.rates[i]
		if rate.Type != typ || !rate.ActiveOn(asOf) {
			continue
		}
		if (salesRepID == nil) != (rate.SalesRepID == nil) {
			continue
		}
		if salesRepID != nil && *rate.SalesRepID != *salesRepID {
			continue
		}
		if best == nil || rate.EffectiveFrom.After(best.EffectiveFrom) {
			best = rate
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	copied := *best
	return &copied, nil
}

func (r *memoryCommissionRepo) ListRates(ctx context.Context, salesRepID *int64) ([]Rate, error) {
	var out []Rate
	for _, rate := range r.rates {
		if salesRepID != nil && (rate.SalesRepID == nil || *rate.SalesRepID != *salesRepID) {
			continue
		}
		out = append(out, rate)
	}
	return out, nil
}

func (r *memoryCommissionRepo) InsertRate(ctx context.Context, rate Rate) (int64, error) {
	r.nextRateID++
	rate.ID = r.nextRateID
	r.rates = append(r.rates, rate)
	return rate.ID, nil
}

func (r *memoryCommissionRepo) CloseOpenEndedRate(ctx context.Context, salesRepID *int64, typ Type, until time.Time) error {
	for i := range r.rates {
		rate := &r.rates[i]
		if rate.Type != typ || rate.EffectiveTo != nil {
			continue
		}
		if (salesRepID == nil) != (rate.SalesRepID == nil) {
			continue
		}
		if salesRepID != nil && *rate.SalesRepID != *salesRepID {
			continue
		}
		t := until
		rate.EffectiveTo = &t
	}
	return nil
}

func (r *memoryCommissionRepo) ListInvoicedOrders(ctx context.Context, from, to time.Time) ([]InvoicedOrder, error) {
	var out []InvoicedOrder
	for _, o := range r.invoiced {
		if o.InvoiceDate.Before(from) || o.InvoiceDate.After(to) {
			continue
		}
		if r.hasCalculation(o.OrderID) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryCommissionRepo) hasCalculation(orderID int64) bool {
	for _, c := range r.calculations {
		if c.OrderID == orderID {
			return true
		}
	}
	return false
}

func (r *memoryCommissionRepo) GetCalculation(ctx context.Context, id int64) (*Calculation, error) {
	c, ok := r.calculations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memoryCommissionRepo) ListCalculations(ctx context.Context, f CalculationFilter) ([]Calculation, error) {
	var out []Calculation
	for _, c := range r.calculations {
		if f.SalesRepID != nil && c.SalesRepID != *f.SalesRepID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *memoryCommissionRepo) InsertCalculation(ctx context.Context, c Calculation) (int64, error) {
	if r.failOrderIDs[c.OrderID] {
		return 0, errors.New("storage failure")
	}
	if r.hasCalculation(c.OrderID) {
		return 0, ErrAlreadyCalculated
	}
	r.nextCalcID++
	c.ID = r.nextCalcID
	r.calculations[c.ID] = &c
	return c.ID, nil
}

func (r *memoryCommissionRepo) ApproveCalculations(ctx context.Context, ids []int64, approverID int64) (int64, error) {
	var count int64
	for _, id := range ids {
		c, ok := r.calculations[id]
		if !ok || c.Status != StatusCalculated {
			continue
		}
		c.Status = StatusApproved
		c.ApprovedBy = &approverID
		count++
	}
	return count, nil
}

func (r *memoryCommissionRepo) ListApprovedForRep(ctx context.Context, salesRepID int64, ids []int64) ([]Calculation, error) {
	var out []Calculation
	for _, id := range ids {
		c, ok := r.calculations[id]
		if !ok || c.SalesRepID != salesRepID || c.Status != StatusApproved {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *memoryCommissionRepo) NextPaymentSeq(ctx context.Context) (int64, error) {
	r.paymentSeq++
	return r.paymentSeq, nil
}

func (r *memoryCommissionRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	r.nextPaymentID++
	p.ID = r.nextPaymentID
	r.payments[p.ID] = &p
	return p.ID, nil
}

func (r *memoryCommissionRepo) InsertPaymentItem(ctx context.Context, item PaymentItem) (int64, error) {
	r.nextItemID++
	item.ID = r.nextItemID
	r.paymentItems = append(r.paymentItems, item)
	return item.ID, nil
}

func (r *memoryCommissionRepo) MarkCalculationsPaid(ctx context.Context, ids []int64, paymentID int64) (int64, error) {
	var count int64
	for _, id := range ids {
		c, ok := r.calculations[id]
		if !ok || c.Status != StatusApproved {
			continue
		}
		c.Status = StatusPaid
		c.PaymentID = &paymentID
		count++
	}
	return count, nil
}

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func june2026() shared.Period {
	return shared.Period{Start: date(2026, time.June, 1), End: date(2026, time.June, 30)}
}

func newTestCalculator(repo *memoryCommissionRepo) *Calculator {
	return NewCalculator(repo, NewResolver(repo, nil), nil, discardLogger())
}

func TestCalculateForPeriodUsesFallbackRate(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{{
		OrderID:     42,
		SalesRepID:  ptr(int64(7)),
		Total:       currency.Amount{USD: 100},
		InvoiceDate: date(2026, time.June, 10),
	}}
	calc := newTestCalculator(repo)

	summary, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Calculated)
	require.Equal(t, 0, summary.Skipped)
	require.Equal(t, 4.00, summary.TotalUSD)

	rows, err := repo.ListCalculations(context.Background(), CalculationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(42), rows[0].OrderID)
	require.Equal(t, int64(7), rows[0].SalesRepID)
	require.Equal(t, TypeDirectSale, rows[0].Type)
	require.Equal(t, 4.00, rows[0].RatePercentage)
	require.Equal(t, 4.00, rows[0].Amount.USD)
	require.Equal(t, StatusCalculated, rows[0].Status)
}

func TestCalculateTwiceNeverDuplicates(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{{
		OrderID:     42,
		SalesRepID:  ptr(int64(7)),
		Total:       currency.Amount{USD: 100},
		InvoiceDate: date(2026, time.June, 10),
	}}
	calc := newTestCalculator(repo)

	first, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, first.Calculated)

	// Overlapping window covering the same invoice date.
	overlap := shared.Period{Start: date(2026, time.May, 15), End: date(2026, time.July, 15)}
	second, err := calc.CalculateForPeriod(context.Background(), overlap, 1)
	require.NoError(t, err)
	require.Equal(t, 0, second.Calculated)

	rows, err := repo.ListCalculations(context.Background(), CalculationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDirectSellerWinsOverAssignedRep(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{{
		OrderID:       50,
		SalesRepID:    ptr(int64(7)),
		AssignedRepID: ptr(int64(9)),
		Total:         currency.Amount{USD: 200},
		InvoiceDate:   date(2026, time.June, 5),
	}}
	calc := newTestCalculator(repo)

	_, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)

	rows, err := repo.ListCalculations(context.Background(), CalculationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(7), rows[0].SalesRepID)
	require.Equal(t, TypeDirectSale, rows[0].Type)
}

func TestAssignedCustomerAttribution(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{{
		OrderID:       51,
		AssignedRepID: ptr(int64(9)),
		Total:         currency.Amount{USD: 300, LBP: 27_000_000},
		InvoiceDate:   date(2026, time.June, 6),
	}}
	calc := newTestCalculator(repo)

	summary, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Calculated)

	rows, err := repo.ListCalculations(context.Background(), CalculationFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(9), rows[0].SalesRepID)
	require.Equal(t, TypeAssignedCustomer, rows[0].Type)
	require.Equal(t, 12.00, rows[0].Amount.USD)
	require.Equal(t, 1_080_000.0, rows[0].Amount.LBP)
}

func TestOrderWithoutRepIsSkipped(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{{
		OrderID:     52,
		Total:       currency.Amount{USD: 100},
		InvoiceDate: date(2026, time.June, 7),
	}}
	calc := newTestCalculator(repo)

	summary, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Calculated)
	require.Equal(t, 1, summary.Skipped)
}

func TestOneBadOrderDoesNotAbortBatch(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{
		{OrderID: 60, SalesRepID: ptr(int64(7)), Total: currency.Amount{USD: 100}, InvoiceDate: date(2026, time.June, 1)},
		{OrderID: 61, SalesRepID: ptr(int64(7)), Total: currency.Amount{USD: 100}, InvoiceDate: date(2026, time.June, 2)},
		{OrderID: 62, SalesRepID: ptr(int64(7)), Total: currency.Amount{USD: 100}, InvoiceDate: date(2026, time.June, 3)},
	}
	repo.failOrderIDs[61] = true
	calc := newTestCalculator(repo)

	summary, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Calculated)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 8.00, summary.TotalUSD)
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	return nil, cache.ErrLockHeld
}

func TestConcurrentBatchRejected(t *testing.T) {
	repo := newMemoryCommissionRepo()
	calc := NewCalculator(repo, NewResolver(repo, nil), heldLocker{}, discardLogger())

	_, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.ErrorIs(t, err, ErrBatchRunning)
}

func TestApproveIgnoresNonCalculatedRows(t *testing.T) {
	repo := newMemoryCommissionRepo()
	repo.invoiced = []InvoicedOrder{
		{OrderID: 70, SalesRepID: ptr(int64(7)), Total: currency.Amount{USD: 100}, InvoiceDate: date(2026, time.June, 1)},
		{OrderID: 71, SalesRepID: ptr(int64(7)), Total: currency.Amount{USD: 100}, InvoiceDate: date(2026, time.June, 2)},
	}
	calc := newTestCalculator(repo)

	_, err := calc.CalculateForPeriod(context.Background(), june2026(), 1)
	require.NoError(t, err)

	count, err := calc.Approve(context.Background(), []int64{1, 2}, 99)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// Re-approving already-approved rows is a silent no-op.
	count, err = calc.Approve(context.Background(), []int64{1, 2}, 99)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	c, err := repo.GetCalculation(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, c.Status)
	require.Equal(t, int64(99), *c.ApprovedBy)
}
