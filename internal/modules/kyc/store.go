// README: KYC store backed by PostgreSQL; approvals are compound transactional writes.
package kyc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

func (s *Store) GetSubmission(ctx context.Context, id types.ID) (*Submission, error) {
	row := s.db.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.document_type, s.status, s.submitted_at, s.reviewed_at, s.review_notes, s.reviewed_by
		FROM kyc_submissions s
		WHERE s.id = $1`, string(id),
	)
	var sub Submission
	if err := scanReview(row, &sub.ID, &sub.UserID, &sub.DocumentType, &sub.Status,
		&sub.SubmittedAt, &sub.ReviewedAt, &sub.ReviewNotes, &sub.ReviewedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("kyc submission %s: %w", id, workflow.ErrNotFound)
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Store) GetApplication(ctx context.Context, id types.ID) (*Application, error) {
	row := s.db.QueryRow(ctx, `
		SELECT a.id, a.user_id, a.business_name, a.status, a.submitted_at, a.reviewed_at, a.review_notes, a.reviewed_by
		FROM vendor_applications a
		WHERE a.id = $1`, string(id),
	)
	var app Application
	if err := scanReview(row, &app.ID, &app.UserID, &app.BusinessName, &app.Status,
		&app.SubmittedAt, &app.ReviewedAt, &app.ReviewNotes, &app.ReviewedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor application %s: %w", id, workflow.ErrNotFound)
		}
		return nil, err
	}
	return &app, nil
}

// ListQueue returns both sources as queue items; the service merges and
// sorts them.
func (s *Store) ListSubmissionItems(ctx context.Context, status *Status) ([]QueueItem, error) {
	query := `
		SELECT s.id, s.user_id, u.name, s.status, s.submitted_at
		FROM kyc_submissions s
		JOIN users u ON u.id = s.user_id`
	args := []any{}
	if status != nil {
		query += ` WHERE s.status = $1`
		args = append(args, string(*status))
	}
	return s.listItems(ctx, KindSubmission, query, args)
}

func (s *Store) ListApplicationItems(ctx context.Context, status *Status) ([]QueueItem, error) {
	query := `
		SELECT a.id, a.user_id, u.name, a.status, a.submitted_at
		FROM vendor_applications a
		JOIN users u ON u.id = a.user_id`
	args := []any{}
	if status != nil {
		query += ` WHERE a.status = $1`
		args = append(args, string(*status))
	}
	return s.listItems(ctx, KindApplication, query, args)
}

func (s *Store) listItems(ctx context.Context, kind Kind, query string, args []any) ([]QueueItem, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueItem
	for rows.Next() {
		var item QueueItem
		var id types.ID
		if err := rows.Scan(&id, &item.UserID, &item.ApplicantName, &item.Status, &item.SubmittedAt); err != nil {
			return nil, err
		}
		item.Kind = kind
		item.ID = ReviewTarget{Kind: kind, ID: id}.WireID()
		out = append(out, item)
	}
	return out, rows.Err()
}

// ReviewSubmission closes a PENDING submission and cascades the verdict to
// any linked vendor/rider profile, atomically. Returns false if the
// submission was no longer PENDING.
func (s *Store) ReviewSubmission(ctx context.Context, sub *Submission, verdict Status, notes *string, reviewerID types.ID) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE kyc_submissions
		SET status = $1, reviewed_at = NOW(), review_notes = $2, reviewed_by = $3
		WHERE id = $4 AND status = $5`,
		string(verdict), notes, string(reviewerID), string(sub.ID), string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	for _, table := range []string{"vendor_profiles", "rider_profiles"} {
		if _, err := tx.Exec(ctx, `
			UPDATE `+table+`
			SET kyc_status = $1, updated_at = NOW()
			WHERE user_id = $2`,
			string(verdict), string(sub.UserID),
		); err != nil {
			return false, err
		}
	}

	return true, tx.Commit(ctx)
}

// ApproveApplication is the compound vendor promotion: application APPROVED,
// vendor profile upserted, user role promoted. All three or none.
func (s *Store) ApproveApplication(ctx context.Context, app *Application, reviewerID types.ID) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE vendor_applications
		SET status = $1, reviewed_at = NOW(), reviewed_by = $2
		WHERE id = $3 AND status = $4`,
		string(StatusApproved), string(reviewerID), string(app.ID), string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO vendor_profiles (id, user_id, business_name, kyc_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET business_name = EXCLUDED.business_name,
		    kyc_status = EXCLUDED.kyc_status,
		    updated_at = NOW()`,
		uuid.NewString(), string(app.UserID), app.BusinessName, string(StatusApproved),
	); err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET role = 'VENDOR'
		WHERE id = $1`, string(app.UserID),
	); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// RejectApplication records the verdict and reason without touching profile
// or role.
func (s *Store) RejectApplication(ctx context.Context, app *Application, reason string, reviewerID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE vendor_applications
		SET status = $1, reviewed_at = NOW(), review_notes = $2, reviewed_by = $3
		WHERE id = $4 AND status = $5`,
		string(StatusRejected), reason, string(reviewerID), string(app.ID), string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanReview(row pgx.Row, id, userID *types.ID, detail *string, status *Status,
	submittedAt *time.Time, reviewedAt **time.Time, reviewNotes **string, reviewedBy **types.ID) error {
	var rAt sql.NullTime
	var rNotes, rBy sql.NullString
	if err := row.Scan(id, userID, detail, status, submittedAt, &rAt, &rNotes, &rBy); err != nil {
		return err
	}
	if rAt.Valid {
		t := rAt.Time
		*reviewedAt = &t
	}
	if rNotes.Valid {
		*reviewNotes = &rNotes.String
	}
	if rBy.Valid {
		v := types.ID(rBy.String)
		*reviewedBy = &v
	}
	return nil
}
