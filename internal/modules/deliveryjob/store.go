// README: Delivery job store backed by PostgreSQL; transitions are single
// transactions covering job, order, legacy delivery, and the job log.
package deliveryjob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soko/internal/modules/order"
	"soko/internal/modules/payment"
	"soko/internal/types"
	"soko/internal/workflow"
)

type Store struct {
	db     *pgxpool.Pool
	legacy LegacySyncer
}

func NewStore(db *pgxpool.Pool, legacy LegacySyncer) *Store {
	if legacy == nil {
		legacy = NoopLegacySyncer{}
	}
	return &Store{db: db, legacy: legacy}
}

const jobColumns = `id, order_id, status, status_version, pickup_city, dropoff_city, agency_id,
	created_at, accepted_at, picked_up_at, in_transit_at, delivered_at, cancelled_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Job, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM delivery_jobs
		WHERE id = $1`, string(id),
	)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("delivery job %s: %w", id, workflow.ErrNotFound)
	}
	return j, err
}

// FindAll returns a page of jobs plus the unpaged total. City matches pickup
// OR dropoff.
func (s *Store) FindAll(ctx context.Context, f Filter) ([]Job, int, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		where = append(where, "status = "+arg(string(*f.Status)))
	}
	if f.City != "" {
		p := arg(f.City)
		where = append(where, fmt.Sprintf("(pickup_city = %s OR dropoff_city = %s)", p, p))
	}
	if f.AgencyID != nil {
		where = append(where, "agency_id = "+arg(string(*f.AgencyID)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM delivery_jobs"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	query := "SELECT " + jobColumns + " FROM delivery_jobs" + cond +
		" ORDER BY created_at DESC LIMIT " + arg(pageSize) + " OFFSET " + arg((page-1)*pageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}
	return out, total, rows.Err()
}

func (s *Store) GetAgency(ctx context.Context, id types.ID) (*Agency, error) {
	var a Agency
	err := s.db.QueryRow(ctx, `
		SELECT id, name, city, is_active
		FROM agencies
		WHERE id = $1`, string(id),
	).Scan(&a.ID, &a.Name, &a.City, &a.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("agency %s: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ApplyTransition commits one job status change and all of its side effects
// atomically: the job row (guarded by status and status_version so a racing
// writer loses cleanly), the owning order where the lifecycle demands it,
// the legacy deliveries row, and the append-only job log. Returns false when
// the optimistic guard matched no row.
func (s *Store) ApplyTransition(ctx context.Context, job *Job, to Status, agencyID *types.ID, entry Log) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var agency *string
	if agencyID != nil {
		v := string(*agencyID)
		agency = &v
	}
	tag, err := tx.Exec(ctx, `
		UPDATE delivery_jobs
		SET status = $1,
		    status_version = status_version + 1,
		    agency_id = COALESCE($2, agency_id),
		    accepted_at = CASE WHEN $1 = 'ACCEPTED' THEN NOW() ELSE accepted_at END,
		    picked_up_at = CASE WHEN $1 = 'PICKED_UP' THEN NOW() ELSE picked_up_at END,
		    in_transit_at = CASE WHEN $1 = 'IN_TRANSIT' THEN NOW() ELSE in_transit_at END,
		    delivered_at = CASE WHEN $1 = 'DELIVERED' THEN NOW() ELSE delivered_at END,
		    cancelled_at = CASE WHEN $1 = 'CANCELLED' THEN NOW() ELSE cancelled_at END
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		agency,
		string(job.ID),
		string(job.Status),
		job.StatusVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := s.applyOrderEffect(ctx, tx, job.OrderID, to); err != nil {
		return false, err
	}

	if err := s.legacy.Sync(ctx, tx, job.OrderID, legacyStatus(to), agencyID); err != nil {
		return false, err
	}

	if err := appendLog(ctx, tx, entry); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// applyOrderEffect writes the order-side consequence of a job transition.
// ACCEPTED puts the order in transit; DELIVERED completes it and settles any
// pending COD payment; CANCELLED cancels it. Intermediate hops change
// nothing on the order.
func (s *Store) applyOrderEffect(ctx context.Context, tx pgx.Tx, orderID types.ID, to Status) error {
	switch to {
	case StatusAccepted:
		_, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, in_transit_at = NOW()
			WHERE id = $2`, string(order.StatusInTransit), string(orderID))
		return err
	case StatusDelivered:
		if _, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, delivered_at = NOW()
			WHERE id = $2`, string(order.StatusDelivered), string(orderID)); err != nil {
			return err
		}
		// COD settles at the doorstep, not through the admin payment endpoints.
		_, err := tx.Exec(ctx, `
			UPDATE payments
			SET status = $1, paid_at = NOW()
			WHERE order_id = $2 AND method = $3 AND status = $4`,
			string(payment.StatusSuccess), string(orderID),
			string(payment.MethodCOD), string(payment.StatusInitiated))
		return err
	case StatusCancelled:
		_, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, cancelled_at = NOW()
			WHERE id = $2`, string(order.StatusCancelled), string(orderID))
		return err
	default:
		return nil
	}
}

func appendLog(ctx context.Context, tx pgx.Tx, e Log) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO delivery_job_logs (
			job_id, event, previous_status, new_status, actor_id, actor_type, notes, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		string(e.JobID),
		e.Event,
		string(e.PreviousStatus),
		string(e.NewStatus),
		actorID,
		string(e.ActorType),
		e.Notes,
		e.Metadata,
	)
	return err
}

func (s *Store) Logs(ctx context.Context, jobID types.ID) ([]Log, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, job_id, event, previous_status, new_status, actor_id, actor_type, notes, metadata, created_at
		FROM delivery_job_logs
		WHERE job_id = $1
		ORDER BY created_at ASC, id ASC`, string(jobID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		var actorID, notes sql.NullString
		if err := rows.Scan(
			&l.ID, &l.JobID, &l.Event, &l.PreviousStatus, &l.NewStatus,
			&actorID, &l.ActorType, &notes, &l.Metadata, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		if actorID.Valid {
			v := types.ID(actorID.String)
			l.ActorID = &v
		}
		if notes.Valid {
			l.Notes = &notes.String
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountByStatus feeds Stats; staleBefore is the creation cutoff for the
// stale-OPEN count.
func (s *Store) CountByStatus(ctx context.Context, staleBefore time.Time) (map[Status]int, int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM delivery_jobs
		GROUP BY status`,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	byStatus := make(map[Status]int)
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, 0, err
		}
		byStatus[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var stale int
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM delivery_jobs
		WHERE status = $1 AND created_at < $2`,
		string(StatusOpen), staleBefore,
	).Scan(&stale)
	if err != nil {
		return nil, 0, err
	}
	return byStatus, stale, nil
}

func legacyStatus(to Status) string {
	switch to {
	case StatusAccepted:
		return legacyAssigned
	case StatusPickedUp:
		return legacyPickedUp
	case StatusInTransit:
		return legacyInTransit
	case StatusDelivered:
		return legacyDelivered
	case StatusCancelled:
		return legacyCancelled
	default:
		return string(to)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var agencyID sql.NullString
	var acceptedAt, pickedUpAt, inTransitAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.OrderID, &j.Status, &j.StatusVersion, &j.PickupCity, &j.DropoffCity, &agencyID,
		&j.CreatedAt, &acceptedAt, &pickedUpAt, &inTransitAt, &deliveredAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if agencyID.Valid {
		v := types.ID(agencyID.String)
		j.AgencyID = &v
	}
	j.AcceptedAt = toTimePtr(acceptedAt)
	j.PickedUpAt = toTimePtr(pickedUpAt)
	j.InTransitAt = toTimePtr(inTransitAt)
	j.DeliveredAt = toTimePtr(deliveredAt)
	j.CancelledAt = toTimePtr(cancelledAt)
	return &j, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
