// README: Dispute workflow service; resolve/reject are manual-only, no refund automation.
package dispute

import (
	"context"
	"fmt"

	"soko/internal/types"
	"soko/internal/workflow"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

type ResolveCommand struct {
	DisputeID types.ID
	AdminID   types.ID
	Notes     string
}

type RejectCommand struct {
	DisputeID types.ID
	AdminID   types.ID
}

// FindAll lists disputes, filtered by derived status. The order matters:
// join first, derive, then filter in memory. The status never exists as a
// column to push the filter into SQL.
func (s *Service) FindAll(ctx context.Context, status *Status) ([]View, error) {
	views, err := s.store.FindAllJoined(ctx)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return views, nil
	}
	filtered := make([]View, 0, len(views))
	for _, v := range views {
		if v.Status == *status {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

// Resolve closes an OPEN dispute with the admin's notes (or a default note).
// Once closed either way, a dispute never reopens.
func (s *Service) Resolve(ctx context.Context, cmd ResolveCommand) (*Dispute, error) {
	notes := cmd.Notes
	if notes == "" {
		notes = defaultResolutionNote
	}
	return s.close(ctx, cmd.DisputeID, notes)
}

// Reject closes an OPEN dispute with the rejected marker.
func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (*Dispute, error) {
	return s.close(ctx, cmd.DisputeID, rejectedMarker)
}

func (s *Service) close(ctx context.Context, id types.ID, resolution string) (*Dispute, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if DeriveStatus(d.Resolution) != StatusOpen {
		return nil, fmt.Errorf("%w: dispute %s already resolved or rejected", workflow.ErrBadRequest, d.ID)
	}
	ok, err := s.store.Close(ctx, d.ID, resolution)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("dispute %s: %w", d.ID, workflow.ErrConflict)
	}
	return s.store.Get(ctx, d.ID)
}
