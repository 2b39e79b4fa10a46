package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedarline-erp/cedarline-erp/internal/platform/db"
)

// Repository defines data access for rates, calculations and payments.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	ActiveRate(ctx context.Context, salesRepID *int64, typ Type, asOf time.Time) (*Rate, error)
	ListRates(ctx context.Context, salesRepID *int64) ([]Rate, error)
	InsertRate(ctx context.Context, rate Rate) (int64, error)
	CloseOpenEndedRate(ctx context.Context, salesRepID *int64, typ Type, until time.Time) error

	ListInvoicedOrders(ctx context.Context, from, to time.Time) ([]InvoicedOrder, error)
	GetCalculation(ctx context.Context, id int64) (*Calculation, error)
	ListCalculations(ctx context.Context, f CalculationFilter) ([]Calculation, error)
	InsertCalculation(ctx context.Context, c Calculation) (int64, error)
	ApproveCalculations(ctx context.Context, ids []int64, approverID int64) (int64, error)
	ListApprovedForRep(ctx context.Context, salesRepID int64, ids []int64) ([]Calculation, error)

	NextPaymentSeq(ctx context.Context) (int64, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	InsertPaymentItem(ctx context.Context, item PaymentItem) (int64, error)
	MarkCalculationsPaid(ctx context.Context, ids []int64, paymentID int64) (int64, error)
}

// CalculationFilter narrows ListCalculations results.
type CalculationFilter struct {
	SalesRepID *int64
	Status     CalculationStatus
	Limit      int
	Offset     int
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

const rateColumns = `id, sales_rep_id, commission_type, rate_percentage,
	effective_from, effective_to, created_by, created_at`

func scanRate(row pgx.Row) (*Rate, error) {
	var (
		rate        Rate
		salesRepID  pgtype.Int8
		effectiveTo pgtype.Date
	)
	err := row.Scan(
		&rate.ID, &salesRepID, &rate.Type, &rate.RatePercentage,
		&rate.EffectiveFrom, &effectiveTo, &rate.CreatedBy, &rate.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if salesRepID.Valid {
		v := salesRepID.Int64
		rate.SalesRepID = &v
	}
	if effectiveTo.Valid {
		t := effectiveTo.Time
		rate.EffectiveTo = &t
	}
	return &rate, nil
}

// ActiveRate returns the rate covering asOf for the exact scope: a concrete
// rep id matches only that rep's overrides, nil matches only the default.
func (r *repository) ActiveRate(ctx context.Context, salesRepID *int64, typ Type, asOf time.Time) (*Rate, error) {
	scope := "sales_rep_id IS NULL"
	args := []any{typ, asOf}
	if salesRepID != nil {
		args = append(args, *salesRepID)
		scope = fmt.Sprintf("sales_rep_id = $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM commission_rates
		WHERE %s AND commission_type = $1
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to >= $2)
		ORDER BY effective_from DESC
		LIMIT 1`, rateColumns, scope)

	rate, err := scanRate(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rate, nil
}

func (r *repository) ListRates(ctx context.Context, salesRepID *int64) ([]Rate, error) {
	query := fmt.Sprintf(`SELECT %s FROM commission_rates`, rateColumns)
	var args []any
	if salesRepID != nil {
		args = append(args, *salesRepID)
		query += " WHERE sales_rep_id = $1"
	}
	query += " ORDER BY effective_from DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commission rates: %w", err)
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission rate: %w", err)
		}
		out = append(out, *rate)
	}
	return out, rows.Err()
}

func (r *repository) InsertRate(ctx context.Context, rate Rate) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO commission_rates (sales_rep_id, commission_type, rate_percentage, effective_from, effective_to, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id`,
		nullableInt8(rate.SalesRepID), rate.Type, rate.RatePercentage,
		rate.EffectiveFrom, nullableDate(rate.EffectiveTo), rate.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert commission rate: %w", err)
	}
	return id, nil
}

// CloseOpenEndedRate stamps effective_to on the scope's current open-ended
// row so the new rate's window starts with no overlap.
func (r *repository) CloseOpenEndedRate(ctx context.Context, salesRepID *int64, typ Type, until time.Time) error {
	scope := "sales_rep_id IS NULL"
	args := []any{typ, until}
	if salesRepID != nil {
		args = append(args, *salesRepID)
		scope = fmt.Sprintf("sales_rep_id = $%d", len(args))
	}

	query := fmt.Sprintf(`
		UPDATE commission_rates SET effective_to = $2
		WHERE %s AND commission_type = $1 AND effective_to IS NULL`, scope)

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("close open-ended rate: %w", err)
	}
	return nil
}

// ListInvoicedOrders returns the period's commission candidates: orders whose
// invoice is issued or paid with an issue date in [from, to] and which have
// no calculation row yet.
func (r *repository) ListInvoicedOrders(ctx context.Context, from, to time.Time) ([]InvoicedOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.sales_rep_id, c.assigned_sales_rep_id, o.total_usd, o.total_lbp, i.issued_at
		FROM orders o
		JOIN invoices i ON i.order_id = o.id
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE i.status IN ('issued', 'paid')
		  AND i.issued_at >= $1 AND i.issued_at <= $2
		  AND NOT EXISTS (SELECT 1 FROM commission_calculations cc WHERE cc.order_id = o.id)
		ORDER BY o.id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list invoiced orders: %w", err)
	}
	defer rows.Close()

	var out []InvoicedOrder
	for rows.Next() {
		var (
			o           InvoicedOrder
			salesRepID  pgtype.Int8
			assignedID  pgtype.Int8
			invoiceDate pgtype.Timestamptz
		)
		if err := rows.Scan(&o.OrderID, &salesRepID, &assignedID, &o.Total.USD, &o.Total.LBP, &invoiceDate); err != nil {
			return nil, fmt.Errorf("scan invoiced order: %w", err)
		}
		if salesRepID.Valid {
			v := salesRepID.Int64
			o.SalesRepID = &v
		}
		if assignedID.Valid {
			v := assignedID.Int64
			o.AssignedRepID = &v
		}
		if invoiceDate.Valid {
			o.InvoiceDate = invoiceDate.Time
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const calculationColumns = `id, order_id, sales_rep_id, commission_type,
	order_total_usd, order_total_lbp, rate_percentage,
	commission_amount_usd, commission_amount_lbp,
	period_start, period_end, status, approved_by, payment_id, created_at, updated_at`

func scanCalculation(row pgx.Row) (*Calculation, error) {
	var (
		c          Calculation
		approvedBy pgtype.Int8
		paymentID  pgtype.Int8
	)
	err := row.Scan(
		&c.ID, &c.OrderID, &c.SalesRepID, &c.Type,
		&c.OrderTotal.USD, &c.OrderTotal.LBP, &c.RatePercentage,
		&c.Amount.USD, &c.Amount.LBP,
		&c.PeriodStart, &c.PeriodEnd, &c.Status, &approvedBy, &paymentID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		v := approvedBy.Int64
		c.ApprovedBy = &v
	}
	if paymentID.Valid {
		v := paymentID.Int64
		c.PaymentID = &v
	}
	return &c, nil
}

func (r *repository) GetCalculation(ctx context.Context, id int64) (*Calculation, error) {
	query := fmt.Sprintf(`SELECT %s FROM commission_calculations WHERE id = $1`, calculationColumns)

	c, err := scanCalculation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) ListCalculations(ctx context.Context, f CalculationFilter) ([]Calculation, error) {
	conditions := "1=1"
	var args []any
	if f.SalesRepID != nil {
		args = append(args, *f.SalesRepID)
		conditions += fmt.Sprintf(" AND sales_rep_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conditions += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query := fmt.Sprintf(`SELECT %s FROM commission_calculations WHERE %s ORDER BY id DESC`, calculationColumns, conditions)
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
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	var out []Calculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) InsertCalculation(ctx context.Context, c Calculation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO commission_calculations
			(order_id, sales_rep_id, commission_type,
			 order_total_usd, order_total_lbp, rate_percentage,
			 commission_amount_usd, commission_amount_lbp,
			 period_start, period_end, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING id`,
		c.OrderID, c.SalesRepID, c.Type,
		c.OrderTotal.USD, c.OrderTotal.LBP, c.RatePercentage,
		c.Amount.USD, c.Amount.LBP,
		c.PeriodStart, c.PeriodEnd, c.Status,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyCalculated
		}
		return 0, fmt.Errorf("insert calculation: %w", err)
	}
	return id, nil
}

// ApproveCalculations flips calculated rows to approved. Rows in any other
// state are left untouched, which makes approval idempotent per id.
func (r *repository) ApproveCalculations(ctx context.Context, ids []int64, approverID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE commission_calculations
		SET status = 'approved', approved_by = $2, updated_at = now()
		WHERE id = ANY($1) AND status = 'calculated'`,
		ids, approverID,
	)
	if err != nil {
		return 0, fmt.Errorf("approve calculations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListApprovedForRep(ctx context.Context, salesRepID int64, ids []int64) ([]Calculation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM commission_calculations
		WHERE id = ANY($1) AND sales_rep_id = $2 AND status = 'approved'
		ORDER BY id`, calculationColumns)

	rows, err := r.db.Query(ctx, query, ids, salesRepID)
	if err != nil {
		return nil, fmt.Errorf("list approved calculations: %w", err)
	}
	defer rows.Close()

	var out []Calculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) NextPaymentSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('commission_payment_ref_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next payment seq: %w", err)
	}
	return seq, nil
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO commission_payments
			(reference, sales_rep_id, total_usd, total_lbp, method, paid_at,
			 period_from, period_to, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING id`,
		p.Reference, p.SalesRepID, p.Total.USD, p.Total.LBP, p.Method, p.PaidAt,
		p.PeriodFrom, p.PeriodTo, nullableText(p.Notes), p.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (r *repository) InsertPaymentItem(ctx context.Context, item PaymentItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO commission_payment_items (payment_id, calculation_id, amount_usd, amount_lbp)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		item.PaymentID, item.CalculationID, item.Amount.USD, item.Amount.LBP,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment item: %w", err)
	}
	return id, nil
}

func (r *repository) MarkCalculationsPaid(ctx context.Context, ids []int64, paymentID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE commission_calculations
		SET status = 'paid', payment_id = $2, updated_at = now()
		WHERE id = ANY($1) AND status = 'approved'`,
		ids, paymentID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark calculations paid: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullableInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func nullableDate(v *time.Time) pgtype.Date {
	if v == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *v, Valid: true}
}

func nullableText(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}
