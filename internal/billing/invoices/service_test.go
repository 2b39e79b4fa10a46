package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/sales/orders"
)

type memoryInvoiceRepo struct {
	invoices   map[int64]*Invoice
	items      map[int64][]InvoiceItem
	nextID     int64
	nextItemID int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices: make(map[int64]*Invoice),
		items:    make(map[int64][]InvoiceItem),
	}
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *memoryInvoiceRepo) GetByOrderID(ctx context.Context, orderID int64) (*Invoice, error) {
	for _, inv := range r.invoices {
		if inv.OrderID == orderID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryInvoiceRepo) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (r *memoryInvoiceRepo) Insert(ctx context.Context, inv Invoice) (int64, error) {
	for _, existing := range r.invoices {
		if existing.OrderID == inv.OrderID {
			return 0, ErrDuplicateOrder
		}
	}
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (r *memoryInvoiceRepo) UpdateTotals(ctx context.Context, id int64, total currency.Amount) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Total = total
	return nil
}

func (r *memoryInvoiceRepo) UpdateStatus(ctx context.Context, id int64, status InvoiceStatus, issuedAt *time.Time) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	if issuedAt != nil {
		inv.IssuedAt = issuedAt
	}
	return nil
}

func (r *memoryInvoiceRepo) InsertItem(ctx context.Context, item InvoiceItem) (int64, error) {
	r.nextItemID++
	item.ID = r.nextItemID
	r.items[item.InvoiceID] = append(r.items[item.InvoiceID], item)
	return item.ID, nil
}

func (r *memoryInvoiceRepo) DeleteItems(ctx context.Context, invoiceID int64) error {
	delete(r.items, invoiceID)
	return nil
}

func (r *memoryInvoiceRepo) ListItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return append([]InvoiceItem(nil), r.items[invoiceID]...), nil
}

type stubOrderSource struct {
	orders map[int64]*orders.Order
}

func (s *stubOrderSource) Get(ctx context.Context, id int64) (*orders.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

func ptr[T any](v T) *T { return &v }

func invoiceableOrder(id int64) *orders.Order {
	return &orders.Order{
		ID:         id,
		CustomerID: ptr(int64(10)),
		SalesRepID: ptr(int64(20)),
		Status:     orders.StatusConfirmed,
		Total:      currency.Amount{USD: 250},
		Items: []orders.OrderItem{
			{ProductID: ptr(int64(7)), Quantity: 5, UnitPriceUSD: 50},
		},
	}
}

func newTestService(repo Repository, src OrderSource) *Service {
	return NewService(repo, src, nil)
}

func TestSyncCreatesInvoiceOnFirstCall(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: invoiceableOrder(42)}}
	svc := newTestService(repo, src)

	result, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "invoice created", result.Message)

	inv, err := repo.GetByOrderID(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "INV-000042", inv.Number)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, 250.0, inv.Total.USD)

	items, err := repo.ListItems(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 5.0, items[0].Quantity)
}

func TestSyncReplacesItemsOnSecondCall(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	first, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)

	order.Total = currency.Amount{USD: 600}
	order.Items = []orders.OrderItem{
		{ProductID: ptr(int64(7)), Quantity: 2, UnitPriceUSD: 100},
		{ProductID: ptr(int64(8)), Quantity: 4, UnitPriceUSD: 100},
	}

	second, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)
	require.True(t, second.Success)
	require.Equal(t, "invoice updated", second.Message)
	require.Equal(t, first.InvoiceID, second.InvoiceID)

	inv, err := repo.Get(context.Background(), second.InvoiceID)
	require.NoError(t, err)
	require.Equal(t, 600.0, inv.Total.USD)

	items, err := repo.ListItems(context.Background(), second.InvoiceID)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestSyncKeepsInvoiceIdentityStable(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	first, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := svc.Sync(context.Background(), 42, 1)
		require.NoError(t, err)
		require.Equal(t, first.InvoiceID, res.InvoiceID)
	}

	inv, err := repo.Get(context.Background(), first.InvoiceID)
	require.NoError(t, err)
	require.Equal(t, "INV-000042", inv.Number)
}

func TestSyncMissingOrder(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	src := &stubOrderSource{orders: map[int64]*orders.Order{}}
	svc := newTestService(repo, src)

	_, err := svc.Sync(context.Background(), 99, 1)
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestSyncRefusesPaidInvoice(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	result, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), result.InvoiceID, StatusPaid, nil))

	_, err = svc.Sync(context.Background(), 42, 1)
	require.ErrorIs(t, err, ErrImmutable)
}

func TestChangeStatusStampsIssuedAt(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	result, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)

	require.NoError(t, svc.ChangeStatus(context.Background(), result.InvoiceID, 1, StatusIssued))

	inv, err := repo.Get(context.Background(), result.InvoiceID)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, inv.Status)
	require.NotNil(t, inv.IssuedAt)
}

func TestChangeStatusStampsIssuedAtOnDirectPay(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	result, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)

	// Paid without ever passing through issued; the invoice still needs an
	// issue date or the commission batch would never pick the order up.
	require.NoError(t, svc.ChangeStatus(context.Background(), result.InvoiceID, 1, StatusPaid))

	inv, err := repo.Get(context.Background(), result.InvoiceID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, inv.Status)
	require.NotNil(t, inv.IssuedAt)
}

func TestChangeStatusKeepsOriginalIssueDateWhenPaid(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	result, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)
	require.NoError(t, svc.ChangeStatus(context.Background(), result.InvoiceID, 1, StatusIssued))

	issued, err := repo.Get(context.Background(), result.InvoiceID)
	require.NoError(t, err)
	require.NotNil(t, issued.IssuedAt)
	firstStamp := *issued.IssuedAt

	require.NoError(t, svc.ChangeStatus(context.Background(), result.InvoiceID, 1, StatusPaid))

	paid, err := repo.Get(context.Background(), result.InvoiceID)
	require.NoError(t, err)
	require.NotNil(t, paid.IssuedAt)
	require.Equal(t, firstStamp, *paid.IssuedAt)
}

func TestChangeStatusRejectsVoidedInvoice(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	order := invoiceableOrder(42)
	src := &stubOrderSource{orders: map[int64]*orders.Order{42: order}}
	svc := newTestService(repo, src)

	result, err := svc.Sync(context.Background(), 42, 1)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), result.InvoiceID, StatusVoided, nil))

	err = svc.ChangeStatus(context.Background(), result.InvoiceID, 1, StatusIssued)
	require.ErrorIs(t, err, ErrImmutable)
}
