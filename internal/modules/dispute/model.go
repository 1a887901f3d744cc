// README: Dispute aggregate; status is derived from the resolution text, never stored.
package dispute

import (
	"time"

	"soko/internal/types"
)

// Status is computed by DeriveStatus; there is no status column on the
// disputes table.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
	StatusRejected Status = "REJECTED"
)

// rejectedMarker is the literal stored in resolution to mean "rejected".
// Any other non-null resolution means "resolved with these notes".
const rejectedMarker = "REJECTED"

// defaultResolutionNote is stored when an admin resolves without notes. It
// must never equal rejectedMarker.
const defaultResolutionNote = "Resolved by admin"

// DeriveStatus is the single place the resolution encoding is interpreted.
// Pure and total: nil → OPEN, the rejected marker → REJECTED, anything else
// → RESOLVED.
func DeriveStatus(resolution *string) Status {
	switch {
	case resolution == nil:
		return StatusOpen
	case *resolution == rejectedMarker:
		return StatusRejected
	default:
		return StatusResolved
	}
}

type Dispute struct {
	ID          types.ID
	OrderID     types.ID
	Reason      string
	Description string
	Resolution  *string
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}

// View is the admin listing row: the dispute joined with order, customer,
// and vendor context, plus the derived status.
type View struct {
	Dispute
	Status       Status
	CustomerName string
	VendorName   string
	OrderTotal   types.Money
}
