// README: Delivery job aggregate, status graph, and append-only job log.
package deliveryjob

import (
	"time"

	"soko/internal/types"
	"soko/internal/workflow"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusAccepted  Status = "ACCEPTED"
	StatusPickedUp  Status = "PICKED_UP"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// StaleJobAge is the policy threshold after which a still-OPEN job counts as
// stale in Stats. Fixed constant pending an operator-configurable surface.
const StaleJobAge = 30 * time.Minute

// Transitions is the legal job state graph. Assignment (OPEN→ACCEPTED) is
// done by an admin or by agency self-service; progress past ACCEPTED belongs
// to the assigned agency; cancellation is admin-only. DELIVERED and
// CANCELLED are terminal.
var Transitions = workflow.Graph[Status]{
	StatusOpen: {
		{To: StatusAccepted, Actors: []workflow.Actor{workflow.ActorAdmin, workflow.ActorAgency}},
		{To: StatusCancelled, Actors: []workflow.Actor{workflow.ActorAdmin}},
	},
	StatusAccepted: {
		{To: StatusPickedUp, Actors: []workflow.Actor{workflow.ActorAgency}},
		{To: StatusCancelled, Actors: []workflow.Actor{workflow.ActorAdmin}},
	},
	StatusPickedUp: {
		{To: StatusInTransit, Actors: []workflow.Actor{workflow.ActorAgency}},
		{To: StatusCancelled, Actors: []workflow.Actor{workflow.ActorAdmin}},
	},
	StatusInTransit: {
		{To: StatusDelivered, Actors: []workflow.Actor{workflow.ActorAgency, workflow.ActorAdmin}},
		{To: StatusCancelled, Actors: []workflow.Actor{workflow.ActorAdmin}},
	},
}

type Job struct {
	ID            types.ID
	OrderID       types.ID
	Status        Status
	StatusVersion int
	PickupCity    string
	DropoffCity   string
	AgencyID      *types.ID
	CreatedAt     time.Time
	AcceptedAt    *time.Time
	PickedUpAt    *time.Time
	InTransitAt   *time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
}

type Agency struct {
	ID       types.ID
	Name     string
	City     string
	IsActive bool
}

// Log event names recorded in delivery_job_logs.
const (
	EventAdminAssigned  = "ADMIN_ASSIGNED"
	EventAgencyAccepted = "AGENCY_ACCEPTED"
	EventPickedUp       = "PICKED_UP"
	EventInTransit      = "IN_TRANSIT"
	EventDelivered      = "DELIVERED"
	EventAdminCancelled = "ADMIN_CANCELLED"
)

// Log is an append-only audit record; rows are never updated or deleted.
type Log struct {
	ID             int64
	JobID          types.ID
	Event          string
	PreviousStatus Status
	NewStatus      Status
	ActorID        *types.ID
	ActorType      workflow.Actor
	Notes          *string
	Metadata       []byte
	CreatedAt      time.Time
}

type Filter struct {
	Status *Status
	// City matches pickup OR dropoff.
	City     string
	AgencyID *types.ID
	Page     int
	PageSize int
}

type Stats struct {
	ByStatus map[Status]int `json:"by_status"`
	// Stale counts jobs still OPEN and created more than StaleJobAge ago.
	Stale int `json:"stale"`
}
