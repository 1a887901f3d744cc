// README: KYC submissions and vendor applications unified into one review queue.
package kyc

import (
	"strings"
	"time"

	"soko/internal/types"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Kind discriminates the two tables behind the unified queue.
type Kind string

const (
	KindSubmission  Kind = "kyc"
	KindApplication Kind = "vendor-app"
)

// vendorAppPrefix is the wire encoding that marks an id as a vendor
// application; kept only for compatibility with the existing admin UI.
const vendorAppPrefix = "vendor-app-"

// ReviewTarget is the internal, tagged form of a queue id. Parse once at the
// HTTP boundary; everything below works on the tagged value.
type ReviewTarget struct {
	Kind Kind
	ID   types.ID
}

func ParseReviewID(raw string) ReviewTarget {
	if rest, ok := strings.CutPrefix(raw, vendorAppPrefix); ok {
		return ReviewTarget{Kind: KindApplication, ID: types.ID(rest)}
	}
	return ReviewTarget{Kind: KindSubmission, ID: types.ID(raw)}
}

// WireID renders the target back to its external string form.
func (t ReviewTarget) WireID() string {
	if t.Kind == KindApplication {
		return vendorAppPrefix + string(t.ID)
	}
	return string(t.ID)
}

type Submission struct {
	ID           types.ID
	UserID       types.ID
	DocumentType string
	Status       Status
	SubmittedAt  time.Time
	ReviewedAt   *time.Time
	ReviewNotes  *string
	ReviewedBy   *types.ID
}

type Application struct {
	ID           types.ID
	UserID       types.ID
	BusinessName string
	Status       Status
	SubmittedAt  time.Time
	ReviewedAt   *time.Time
	ReviewNotes  *string
	ReviewedBy   *types.ID
}

// QueueItem is one row of the unified admin view.
type QueueItem struct {
	ID            string   `json:"id"` // wire form, possibly prefixed
	Kind          Kind     `json:"kind"`
	UserID        types.ID `json:"user_id"`
	ApplicantName string   `json:"applicant_name"`
	Status        Status   `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
