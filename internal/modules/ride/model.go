// Package ride owns the ride lifecycle: the status machine, the accept race,
// and completion settlement.
package ride

import (
	"time"

	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition leaves the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AllowedTransitions is the ride state flow as code. Completion straight from
// accepted covers short hops where the driver never reports a start.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Location is a ride endpoint: coordinates plus the human-entered address.
type Location struct {
	types.Point
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

type Ride struct {
	ID           types.ID             `json:"id"`
	CustomerID   types.ID             `json:"customer_id"`
	DriverID     *types.ID            `json:"driver_id,omitempty"`
	DispatcherID types.ID             `json:"dispatcher_id"`
	Status       Status               `json:"status"`
	VehicleClass pricing.VehicleClass `json:"vehicle_class"`
	Pickup       Location             `json:"pickup"`
	Dropoff      Location             `json:"dropoff"`
	DistanceKm   float64              `json:"distance_km"`
	DurationMin  int                  `json:"duration_min"`
	Fare         float64              `json:"fare"`
	FinalFare    *float64             `json:"final_fare,omitempty"`
	Currency     string               `json:"currency"`
	CreatedAt    time.Time            `json:"created_at"`
	AcceptedAt   *time.Time           `json:"accepted_at,omitempty"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	CancelledAt  *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy  *string              `json:"cancelled_by,omitempty"`
}

// Event is one audit-trail row per transition.
type Event struct {
	ID         int64
	RideID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// Actor types recorded on events and cancellations.
const (
	ActorDispatcher = "dispatcher"
	ActorDriver     = "driver"
	ActorRider      = "rider"
)

// Settlement is what completion produces: the charged fare and the commission
// debited from the driver's balance.
type Settlement struct {
	FinalFare        float64 `json:"final_fare"`
	CommissionRate   float64 `json:"commission_rate"`
	Commission       float64 `json:"commission"`
	DriverEarnings   float64 `json:"driver_earnings"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// Snapshot is the rider-facing live view of a ride.
type Snapshot struct {
	RideID           types.ID     `json:"ride_id"`
	Status           Status       `json:"status"`
	DriverID         *types.ID    `json:"driver_id,omitempty"`
	DriverLocation   *types.Point `json:"driver_location,omitempty"`
	DriverOnDuty     bool         `json:"driver_on_duty"`
	Fare             float64      `json:"fare"`
	RemainingCost    *float64     `json:"remaining_cost,omitempty"`
	MinutesRemaining *int         `json:"minutes_remaining,omitempty"`
}
