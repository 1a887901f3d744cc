// README: Dispute store backed by PostgreSQL.
package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soko/internal/types"
	"soko/internal/workflow"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Dispute, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, order_id, reason, description, resolution, resolved_at, created_at
		FROM disputes
		WHERE id = $1`, string(id),
	)
	d, err := scanDispute(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dispute %s: %w", id, workflow.ErrNotFound)
	}
	return d, err
}

// FindAllJoined returns every dispute with its order, customer, and vendor
// context. Status filtering happens in the service after derivation; the
// encoding is not queryable SQL-side without duplicating DeriveStatus.
func (s *Store) FindAllJoined(ctx context.Context) ([]View, error) {
	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.order_id, d.reason, d.description, d.resolution, d.resolved_at, d.created_at,
		       c.name, v.name, o.total_amount, o.currency
		FROM disputes d
		JOIN orders o ON o.id = d.order_id
		JOIN users c ON c.id = o.customer_id
		JOIN users v ON v.id = o.vendor_id
		ORDER BY d.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []View
	for rows.Next() {
		var v View
		var resolution sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(
			&v.ID, &v.OrderID, &v.Reason, &v.Description, &resolution, &resolvedAt, &v.CreatedAt,
			&v.CustomerName, &v.VendorName, &v.OrderTotal.Amount, &v.OrderTotal.Currency,
		); err != nil {
			return nil, err
		}
		if resolution.Valid {
			v.Resolution = &resolution.String
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			v.ResolvedAt = &t
		}
		v.Status = DeriveStatus(v.Resolution)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Close writes the resolution and resolved_at. The IS NULL predicate is the
// write-side monotonicity guard: a dispute closed by a concurrent admin
// matches no row and the caller sees false.
func (s *Store) Close(ctx context.Context, id types.ID, resolution string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE disputes
		SET resolution = $1, resolved_at = NOW()
		WHERE id = $2 AND resolution IS NULL`,
		resolution, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanDispute(row pgx.Row) (*Dispute, error) {
	var d Dispute
	var resolution sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&d.ID, &d.OrderID, &d.Reason, &d.Description, &resolution, &resolvedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if resolution.Valid {
		d.Resolution = &resolution.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		d.ResolvedAt = &t
	}
	return &d, nil
}
