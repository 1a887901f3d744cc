// README: Dual-write sync to the superseded deliveries table (migration in progress).
package deliveryjob

import (
	"context"

	"github.com/jackc/pgx/v5"

	"soko/internal/types"
)

// LegacySyncer keeps the old deliveries row in step with delivery-job
// transitions. It runs inside the job transaction so a sync failure rolls
// the whole transition back. Delete this interface and its wiring once the
// deliveries table is retired.
type LegacySyncer interface {
	Sync(ctx context.Context, tx pgx.Tx, orderID types.ID, status string, agencyID *types.ID) error
}

// legacy delivery statuses; only the ones the job workflow produces.
const (
	legacyAssigned  = "ASSIGNED"
	legacyPickedUp  = "PICKED_UP"
	legacyInTransit = "IN_TRANSIT"
	legacyDelivered = "DELIVERED"
	legacyCancelled = "CANCELLED"
)

// PGLegacySyncer updates the deliveries row for the order if one exists.
// Orders created after the delivery-job rollout have no row; zero updated
// rows is not an error.
type PGLegacySyncer struct{}

func (PGLegacySyncer) Sync(ctx context.Context, tx pgx.Tx, orderID types.ID, status string, agencyID *types.ID) error {
	var agency *string
	if agencyID != nil {
		v := string(*agencyID)
		agency = &v
	}
	_, err := tx.Exec(ctx, `
		UPDATE deliveries
		SET status = $1,
		    agency_id = COALESCE($2, agency_id),
		    updated_at = NOW()
		WHERE order_id = $3`,
		status, agency, string(orderID),
	)
	return err
}

// NoopLegacySyncer is for deployments that have already dropped the table.
type NoopLegacySyncer struct{}

func (NoopLegacySyncer) Sync(context.Context, pgx.Tx, types.ID, string, *types.ID) error {
	return nil
}
