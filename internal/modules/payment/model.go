// README: Payment aggregate and status definitions.
package payment

import (
	"time"

	"soko/internal/types"
	"soko/internal/workflow"
)

type Method string

const (
	MethodCOD            Method = "COD"
	MethodMTNMobileMoney Method = "MTN_MOBILE_MONEY"
	MethodOrangeMoney    Method = "ORANGE_MONEY"
	MethodCard           Method = "CARD"
)

// Online reports whether the method settles through the payment gateway.
// COD settles physically at delivery and is exempt from the admin
// confirm/fail workflow.
func (m Method) Online() bool {
	return m != MethodCOD
}

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

type Payment struct {
	ID            types.ID
	OrderID       types.ID
	Amount        types.Money
	Method        Method
	Status        Status
	TransactionID *string
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// Transitions is the legal payment state graph. SUCCESS and FAILED are
// terminal; re-resolving an already-resolved payment always fails.
var Transitions = workflow.Graph[Status]{
	StatusInitiated: {
		{To: StatusSuccess, Actors: []workflow.Actor{workflow.ActorAdmin, workflow.ActorSystem}},
		{To: StatusFailed, Actors: []workflow.Actor{workflow.ActorAdmin, workflow.ActorSystem}},
	},
}
