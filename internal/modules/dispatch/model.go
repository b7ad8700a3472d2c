// Package dispatch offers pending rides to nearby eligible drivers. Offers
// carry equal weight; whoever accepts first wins the ride.
package dispatch

import (
	"royaltaxi/internal/modules/eligibility"
	"royaltaxi/internal/types"
)

// Candidate is a driver considered for a broadcast: their gate state plus the
// position from their duty record.
type Candidate struct {
	DriverID types.ID
	State    eligibility.DriverState
	Location types.Point
}

// Result reports who a broadcast reached.
type Result struct {
	RideID    types.ID   `json:"ride_id"`
	DriverIDs []types.ID `json:"driver_ids"`
	Count     int        `json:"count"`
	RadiusKm  float64    `json:"radius_km"`
}

// Status is the operator view of a ride's dispatch history, accumulated
// across broadcast rounds.
type Status struct {
	RideID          types.ID   `json:"ride_id"`
	NotifiedDrivers []types.ID `json:"notified_drivers"`
	Rounds          int64      `json:"rounds"`
}
