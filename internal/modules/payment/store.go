// README: Payment store backed by PostgreSQL; resolve paths update payment and order atomically.
package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soko/internal/modules/order"
	"soko/internal/types"
	"soko/internal/workflow"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const paymentColumns = `id, order_id, amount, currency, method, status, transaction_id, paid_at, created_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1`, string(id),
	)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, workflow.ErrNotFound)
	}
	return p, err
}

func (s *Store) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE transaction_id = $1`, transactionID,
	)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment with transaction %s: %w", transactionID, workflow.ErrNotFound)
	}
	return p, err
}

func (s *Store) List(ctx context.Context, status *Status) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarkSucceeded flips the payment to SUCCESS and the order to CONFIRMED in
// one transaction. The status predicate on the UPDATE makes concurrent
// resolvers race safely: the loser sees zero rows and reports false.
func (s *Store) MarkSucceeded(ctx context.Context, paymentID, orderID types.ID) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $1, paid_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(StatusSuccess), string(paymentID), string(StatusInitiated),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, confirmed_at = NOW()
		WHERE id = $2`,
		string(order.StatusConfirmed), string(orderID),
	); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// MarkFailed flips the payment to FAILED and cancels the order in one
// transaction.
func (s *Store) MarkFailed(ctx context.Context, paymentID, orderID types.ID) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $1
		WHERE id = $2 AND status = $3`,
		string(StatusFailed), string(paymentID), string(StatusInitiated),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, cancelled_at = NOW()
		WHERE id = $2`,
		string(order.StatusCancelled), string(orderID),
	); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	var transactionID sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.OrderID, &p.Amount.Amount, &p.Amount.Currency,
		&p.Method, &p.Status, &transactionID, &paidAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if transactionID.Valid {
		p.TransactionID = &transactionID.String
	}
	p.PaidAt = toTimePtr(paidAt)
	return &p, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
