// README: Payment workflow service; admin confirm/fail plus the gateway webhook path.
package payment

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

type ConfirmCommand struct {
	PaymentID types.ID
	AdminID   types.ID
}

type FailCommand struct {
	PaymentID types.ID
	AdminID   types.ID
}

// GatewayResultCommand carries an asynchronous result from the payment
// provider; the wire protocol is handled upstream, only the outcome lands here.
type GatewayResultCommand struct {
	TransactionID string
	Succeeded     bool
}

func (s *Service) List(ctx context.Context, status *Status) ([]Payment, error) {
	return s.store.List(ctx, status)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Payment, error) {
	return s.store.Get(ctx, id)
}

// Confirm marks an online payment SUCCESS and its order CONFIRMED. COD is
// rejected outright; it settles at delivery, never through this endpoint.
// There is no refund automation on any path: refunds stay manual.
func (s *Service) Confirm(ctx context.Context, cmd ConfirmCommand) (*Payment, error) {
	p, err := s.store.Get(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if err := s.resolvable(p, StatusSuccess, workflow.ActorAdmin, "confirm"); err != nil {
		return nil, err
	}
	ok, err := s.store.MarkSucceeded(ctx, p.ID, p.OrderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", p.ID, workflow.ErrConflict)
	}
	return s.store.Get(ctx, p.ID)
}

// Fail marks an online payment FAILED and cancels its order.
func (s *Service) Fail(ctx context.Context, cmd FailCommand) (*Payment, error) {
	p, err := s.store.Get(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if err := s.resolvable(p, StatusFailed, workflow.ActorAdmin, "fail"); err != nil {
		return nil, err
	}
	ok, err := s.store.MarkFailed(ctx, p.ID, p.OrderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", p.ID, workflow.ErrConflict)
	}
	return s.store.Get(ctx, p.ID)
}

// ResolveFromGateway applies a provider callback. Same transitions as the
// admin path, but the actor is SYSTEM and lookup is by transaction id.
func (s *Service) ResolveFromGateway(ctx context.Context, cmd GatewayResultCommand) error {
	if cmd.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction id", workflow.ErrValidation)
	}
	p, err := s.store.GetByTransactionID(ctx, cmd.TransactionID)
	if err != nil {
		return err
	}
	to, verb := StatusSuccess, "confirm"
	if !cmd.Succeeded {
		to, verb = StatusFailed, "fail"
	}
	if err := s.resolvable(p, to, workflow.ActorSystem, verb); err != nil {
		return err
	}

	var ok bool
	if cmd.Succeeded {
		ok, err = s.store.MarkSucceeded(ctx, p.ID, p.OrderID)
	} else {
		ok, err = s.store.MarkFailed(ctx, p.ID, p.OrderID)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("payment %s: %w", p.ID, workflow.ErrConflict)
	}
	return nil
}

func (s *Service) resolvable(p *Payment, to Status, actor workflow.Actor, verb string) error {
	if !p.Method.Online() {
		return fmt.Errorf("%w: COD payments cannot be %sed manually", workflow.ErrBadRequest, verb)
	}
	if !Transitions.Can(p.Status, to, actor) {
		return fmt.Errorf("%w: cannot %s payment with status %s", workflow.ErrBadRequest, verb, p.Status)
	}
	return nil
}
