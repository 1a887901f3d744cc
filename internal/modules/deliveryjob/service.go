// README: Delivery job workflow service; validates transitions, applies
// transactional writes, and emits post-commit events.
package deliveryjob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"soko/internal/events"
	"soko/internal/types"
	"soko/internal/workflow"
)

type Service struct {
	store     *Store
	cache     statsCache
	publisher events.Publisher
}

func NewService(store *Store, cache *redis.Client, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{store: store, cache: statsCache{redis: cache}, publisher: publisher}
}

type AssignCommand struct {
	JobID    types.ID
	AgencyID types.ID
	AdminID  types.ID
}

type AcceptCommand struct {
	JobID    types.ID
	AgencyID types.ID
}

type ProgressCommand struct {
	JobID    types.ID
	AgencyID types.ID
}

type CancelCommand struct {
	JobID   types.ID
	AdminID types.ID
	Reason  string
}

func (s *Service) FindAll(ctx context.Context, f Filter) ([]Job, int, error) {
	return s.store.FindAll(ctx, f)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Job, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Logs(ctx context.Context, jobID types.ID) ([]Log, error) {
	if _, err := s.store.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.Logs(ctx, jobID)
}

// Stats aggregates job counts per status plus the stale-OPEN count used for
// operational alerting. Results are cached briefly.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if st, ok := s.cache.get(ctx); ok {
		return st, nil
	}
	byStatus, stale, err := s.store.CountByStatus(ctx, time.Now().Add(-StaleJobAge))
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: byStatus, Stale: stale}
	s.cache.set(ctx, st)
	return st, nil
}

// AssignToAgency is the manual admin assignment: OPEN→ACCEPTED, agency set,
// order put in transit, legacy delivery synced, audit row appended, all in
// one transaction.
func (s *Service) AssignToAgency(ctx context.Context, cmd AssignCommand) (*Job, error) {
	job, err := s.store.Get(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}
	if err := Transitions.Validate("delivery job", job.Status, StatusAccepted, workflow.ActorAdmin); err != nil {
		return nil, err
	}
	agency, err := s.store.GetAgency(ctx, cmd.AgencyID)
	if err != nil {
		return nil, err
	}
	if !agency.IsActive {
		return nil, fmt.Errorf("%w: cannot assign to inactive agency %s", workflow.ErrBadRequest, agency.ID)
	}

	metadata, _ := json.Marshal(map[string]string{
		"agency_id":   string(agency.ID),
		"agency_name": agency.Name,
	})
	return s.transition(ctx, job, StatusAccepted, &agency.ID, Log{
		JobID:          job.ID,
		Event:          EventAdminAssigned,
		PreviousStatus: job.Status,
		NewStatus:      StatusAccepted,
		ActorID:        &cmd.AdminID,
		ActorType:      workflow.ActorAdmin,
		Metadata:       metadata,
	})
}

// Accept is agency self-service assignment of an OPEN job.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Job, error) {
	job, err := s.store.Get(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}
	if err := Transitions.Validate("delivery job", job.Status, StatusAccepted, workflow.ActorAgency); err != nil {
		return nil, err
	}
	agency, err := s.store.GetAgency(ctx, cmd.AgencyID)
	if err != nil {
		return nil, err
	}
	if !agency.IsActive {
		return nil, fmt.Errorf("%w: inactive agency %s cannot accept jobs", workflow.ErrBadRequest, agency.ID)
	}

	return s.transition(ctx, job, StatusAccepted, &agency.ID, Log{
		JobID:          job.ID,
		Event:          EventAgencyAccepted,
		PreviousStatus: job.Status,
		NewStatus:      StatusAccepted,
		ActorID:        &cmd.AgencyID,
		ActorType:      workflow.ActorAgency,
	})
}

func (s *Service) MarkPickedUp(ctx context.Context, cmd ProgressCommand) (*Job, error) {
	return s.progress(ctx, cmd, StatusPickedUp, EventPickedUp)
}

func (s *Service) MarkInTransit(ctx context.Context, cmd ProgressCommand) (*Job, error) {
	return s.progress(ctx, cmd, StatusInTransit, EventInTransit)
}

// MarkDelivered completes the job; the order goes DELIVERED and a pending
// COD payment settles inside the same transaction.
func (s *Service) MarkDelivered(ctx context.Context, cmd ProgressCommand) (*Job, error) {
	return s.progress(ctx, cmd, StatusDelivered, EventDelivered)
}

func (s *Service) progress(ctx context.Context, cmd ProgressCommand, to Status, event string) (*Job, error) {
	job, err := s.store.Get(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}
	if job.AgencyID == nil || *job.AgencyID != cmd.AgencyID {
		return nil, fmt.Errorf("%w: job %s is not assigned to agency %s", workflow.ErrBadRequest, job.ID, cmd.AgencyID)
	}
	if err := Transitions.Validate("delivery job", job.Status, to, workflow.ActorAgency); err != nil {
		return nil, err
	}
	return s.transition(ctx, job, to, nil, Log{
		JobID:          job.ID,
		Event:          event,
		PreviousStatus: job.Status,
		NewStatus:      to,
		ActorID:        &cmd.AgencyID,
		ActorType:      workflow.ActorAgency,
	})
}

// Cancel is admin-only and terminal; the owning order is cancelled too.
// There is no refund automation: any refund is handled manually.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Job, error) {
	job, err := s.store.Get(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}
	if err := Transitions.Validate("delivery job", job.Status, StatusCancelled, workflow.ActorAdmin); err != nil {
		return nil, err
	}
	var notes *string
	if cmd.Reason != "" {
		notes = &cmd.Reason
	}
	return s.transition(ctx, job, StatusCancelled, nil, Log{
		JobID:          job.ID,
		Event:          EventAdminCancelled,
		PreviousStatus: job.Status,
		NewStatus:      StatusCancelled,
		ActorID:        &cmd.AdminID,
		ActorType:      workflow.ActorAdmin,
		Notes:          notes,
	})
}

func (s *Service) transition(ctx context.Context, job *Job, to Status, agencyID *types.ID, entry Log) (*Job, error) {
	ok, err := s.store.ApplyTransition(ctx, job, to, agencyID, entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("delivery job %s: %w", job.ID, workflow.ErrConflict)
	}

	updated, err := s.store.Get(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	// Post-commit, fire-and-forget: a broker outage must not fail the
	// transition that already committed.
	var agency *string
	if updated.AgencyID != nil {
		v := string(*updated.AgencyID)
		agency = &v
	}
	_ = s.publisher.JobStatusChanged(ctx, events.JobStatusEvent{
		JobID:      string(updated.ID),
		OrderID:    string(updated.OrderID),
		FromStatus: string(entry.PreviousStatus),
		ToStatus:   string(to),
		AgencyID:   agency,
		ActorType:  string(entry.ActorType),
		OccurredAt: time.Now(),
	})
	return updated, nil
}
