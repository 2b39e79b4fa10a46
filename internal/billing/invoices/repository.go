package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/platform/db"
)

// Repository defines data access for invoices and their line items.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByOrderID(ctx context.Context, orderID int64) (*Invoice, error)
	List(ctx context.Context, f ListFilter) ([]Invoice, int, error)
	Insert(ctx context.Context, inv Invoice) (int64, error)
	UpdateTotals(ctx context.Context, id int64, total currency.Amount) error
	UpdateStatus(ctx context.Context, id int64, status InvoiceStatus, issuedAt *time.Time) error
	InsertItem(ctx context.Context, item InvoiceItem) (int64, error)
	DeleteItems(ctx context.Context, invoiceID int64) error
	ListItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
}

// ListFilter narrows List results.
type ListFilter struct {
	Status InvoiceStatus
	Limit  int
	Offset int
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, number, order_id, status, total_usd, total_lbp,
	created_by, issued_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var (
		inv      Invoice
		issuedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.OrderID, &inv.Status,
		&inv.Total.USD, &inv.Total.LBP, &inv.CreatedBy,
		&issuedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if issuedAt.Valid {
		t := issuedAt.Time
		inv.IssuedAt = &t
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns)

	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetByOrderID(ctx context.Context, orderID int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE order_id = $1`, invoiceColumns)

	inv, err := scanInvoice(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	conditions := "1=1"
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		conditions += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM invoices WHERE ` + conditions
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY id DESC`, invoiceColumns, conditions)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

func (r *repository) Insert(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (number, order_id, status, total_usd, total_lbp, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id`,
		inv.Number, inv.OrderID, inv.Status, inv.Total.USD, inv.Total.LBP, inv.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDuplicateOrder
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateTotals(ctx context.Context, id int64, total currency.Amount) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET total_usd = $2, total_lbp = $3, updated_at = now()
		WHERE id = $1`,
		id, total.USD, total.LBP,
	)
	if err != nil {
		return fmt.Errorf("update invoice totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status InvoiceStatus, issuedAt *time.Time) error {
	var ts pgtype.Timestamptz
	if issuedAt != nil {
		ts = pgtype.Timestamptz{Time: *issuedAt, Valid: true}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $2, issued_at = COALESCE($3, issued_at), updated_at = now()
		WHERE id = $1`,
		id, status, ts,
	)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item InvoiceItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price_usd, unit_price_lbp, discount_percent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.InvoiceID, nullableInt8(item.ProductID), item.Quantity,
		item.UnitPriceUSD, item.UnitPriceLBP, item.DiscountPercent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert invoice item: %w", err)
	}
	return id, nil
}

func (r *repository) DeleteItems(ctx context.Context, invoiceID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, product_id, quantity, unit_price_usd, unit_price_lbp, discount_percent
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var out []InvoiceItem
	for rows.Next() {
		var (
			it        InvoiceItem
			productID pgtype.Int8
		)
		if err := rows.Scan(&it.ID, &it.InvoiceID, &productID, &it.Quantity, &it.UnitPriceUSD, &it.UnitPriceLBP, &it.DiscountPercent); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if productID.Valid {
			v := productID.Int64
			it.ProductID = &v
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func nullableInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}
