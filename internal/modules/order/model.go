// README: Order aggregate shared by the payment and delivery-job workflows.
package order

import (
	"time"

	"soko/internal/types"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Orders are created by the customer checkout path (out of scope here) and
// mutated only through the payment and delivery-job workflow services.
type Order struct {
	ID              types.ID
	CustomerID      types.ID
	VendorID        types.ID
	Status          Status
	TotalAmount     types.Money
	DeliveryAddress string
	DeliveryPhone   string
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	InTransitAt     *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}
