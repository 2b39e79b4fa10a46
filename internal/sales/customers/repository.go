package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedarline-erp/cedarline-erp/internal/platform/db"
)

// Repository defines data access for customers.
type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]Customer, error)
	RecordAdjustment(ctx context.Context, adj BalanceAdjustment) (int64, error)
	ListAdjustments(ctx context.Context, customerID int64) ([]BalanceAdjustment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	const query = `
		SELECT id, name, phone, assigned_sales_rep_id, balance_usd, balance_lbp, created_at, updated_at
		FROM customers WHERE id = $1`

	var c Customer
	var assignedRep pgtype.Int8
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Phone, &assignedRep,
		&c.Balance.USD, &c.Balance.LBP, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if assignedRep.Valid {
		c.AssignedSalesRepID = &assignedRep.Int64
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	const query = `
		SELECT id, name, phone, assigned_sales_rep_id, balance_usd, balance_lbp, created_at, updated_at
		FROM customers ORDER BY name, id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		var assignedRep pgtype.Int8
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Phone, &assignedRep,
			&c.Balance.USD, &c.Balance.LBP, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if assignedRep.Valid {
			c.AssignedSalesRepID = &assignedRep.Int64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordAdjustment appends a ledger row and moves the balance snapshot in the
// same transaction.
func (r *repository) RecordAdjustment(ctx context.Context, adj BalanceAdjustment) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
			INSERT INTO customer_balance_adjustments (
				customer_id, kind, amount_usd, amount_lbp,
				previous_balance_usd, previous_balance_lbp,
				new_balance_usd, new_balance_lbp,
				reason, performed_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			RETURNING id`
		if err := tx.QueryRow(ctx, insert,
			adj.CustomerID, adj.Kind, adj.Amount.USD, adj.Amount.LBP,
			adj.PreviousBalance.USD, adj.PreviousBalance.LBP,
			adj.NewBalance.USD, adj.NewBalance.LBP,
			adj.Reason, adj.PerformedBy,
		).Scan(&id); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE customers SET balance_usd = $1, balance_lbp = $2, updated_at = NOW() WHERE id = $3`,
			adj.NewBalance.USD, adj.NewBalance.LBP, adj.CustomerID,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) ListAdjustments(ctx context.Context, customerID int64) ([]BalanceAdjustment, error) {
	const query = `
		SELECT id, customer_id, kind, amount_usd, amount_lbp,
		       previous_balance_usd, previous_balance_lbp,
		       new_balance_usd, new_balance_lbp,
		       reason, performed_by, created_at
		FROM customer_balance_adjustments
		WHERE customer_id = $1
		ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceAdjustment
	for rows.Next() {
		var a BalanceAdjustment
		if err := rows.Scan(
			&a.ID, &a.CustomerID, &a.Kind, &a.Amount.USD, &a.Amount.LBP,
			&a.PreviousBalance.USD, &a.PreviousBalance.LBP,
			&a.NewBalance.USD, &a.NewBalance.LBP,
			&a.Reason, &a.PerformedBy, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
