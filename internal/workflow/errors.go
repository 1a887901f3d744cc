// README: Shared error taxonomy for workflow services; handlers map these to HTTP codes.
package workflow

import "errors"

var (
	// ErrNotFound is wrapped with the name of the missing entity.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest covers business-rule violations; the wrapping message names
	// the current state and why the action is rejected.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidTransition is returned by Graph.Validate for illegal edges.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict is returned when an optimistic status update loses a race.
	ErrConflict = errors.New("state conflict")
	// ErrValidation covers malformed input rejected before any entity lookup.
	ErrValidation = errors.New("invalid input")
)
