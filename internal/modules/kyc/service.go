// README: KYC review service; one queue over two tables, dispatched by tagged id.
package kyc

import (
	"context"
	"fmt"
	"sort"

	"soko/internal/types"
	"soko/internal/workflow"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

type ReviewCommand struct {
	Target  ReviewTarget
	AdminID types.ID
	// Reason is required for rejections and ignored for approvals.
	Reason string
}

// FindAll merges raw KYC submissions and vendor applications into one queue,
// newest first.
func (s *Service) FindAll(ctx context.Context, status *Status) ([]QueueItem, error) {
	subs, err := s.store.ListSubmissionItems(ctx, status)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.ListApplicationItems(ctx, status)
	if err != nil {
		return nil, err
	}
	items := append(subs, apps...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].SubmittedAt.After(items[j].SubmittedAt)
	})
	return items, nil
}

func (s *Service) Approve(ctx context.Context, cmd ReviewCommand) error {
	switch cmd.Target.Kind {
	case KindApplication:
		return s.approveApplication(ctx, cmd)
	default:
		return s.reviewSubmission(ctx, cmd, StatusApproved, nil)
	}
}

func (s *Service) Reject(ctx context.Context, cmd ReviewCommand) error {
	// Validated before any lookup.
	if cmd.Reason == "" {
		return fmt.Errorf("%w: rejection reason is required", workflow.ErrValidation)
	}
	switch cmd.Target.Kind {
	case KindApplication:
		return s.rejectApplication(ctx, cmd)
	default:
		reason := cmd.Reason
		return s.reviewSubmission(ctx, cmd, StatusRejected, &reason)
	}
}

func (s *Service) approveApplication(ctx context.Context, cmd ReviewCommand) error {
	app, err := s.store.GetApplication(ctx, cmd.Target.ID)
	if err != nil {
		return err
	}
	if app.Status != StatusPending {
		return fmt.Errorf("%w: cannot approve application with status %s", workflow.ErrBadRequest, app.Status)
	}
	ok, err := s.store.ApproveApplication(ctx, app, cmd.AdminID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("vendor application %s: %w", app.ID, workflow.ErrConflict)
	}
	return nil
}

func (s *Service) rejectApplication(ctx context.Context, cmd ReviewCommand) error {
	app, err := s.store.GetApplication(ctx, cmd.Target.ID)
	if err != nil {
		return err
	}
	if app.Status != StatusPending {
		return fmt.Errorf("%w: cannot reject application with status %s", workflow.ErrBadRequest, app.Status)
	}
	ok, err := s.store.RejectApplication(ctx, app, cmd.Reason, cmd.AdminID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("vendor application %s: %w", app.ID, workflow.ErrConflict)
	}
	return nil
}

func (s *Service) reviewSubmission(ctx context.Context, cmd ReviewCommand, verdict Status, notes *string) error {
	sub, err := s.store.GetSubmission(ctx, cmd.Target.ID)
	if err != nil {
		return err
	}
	if sub.Status != StatusPending {
		return fmt.Errorf("%w: cannot review submission with status %s", workflow.ErrBadRequest, sub.Status)
	}
	ok, err := s.store.ReviewSubmission(ctx, sub, verdict, notes, cmd.AdminID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("kyc submission %s: %w", sub.ID, workflow.ErrConflict)
	}
	return nil
}
