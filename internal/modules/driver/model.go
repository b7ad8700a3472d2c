package driver

import (
	"time"

	"royaltaxi/internal/types"
)

// Driver is the profile snapshot the ledger operates on. Rows live in the
// users table with role 'driver'.
type Driver struct {
	ID         types.ID  `json:"id"`
	Phone      string    `json:"phone"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsActive   bool      `json:"is_active"`
	IsApproved bool      `json:"is_approved"`
	Balance    float64   `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
}

// DutyRecord is the single source of truth for a driver's duty flag and last
// reported location. One row per driver.
type DutyRecord struct {
	DriverID  types.ID     `json:"driver_id"`
	OnDuty    bool         `json:"on_duty"`
	Location  *types.Point `json:"location,omitempty"`
	City      string       `json:"city,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Stats aggregates a driver's ride history and current balance.
type Stats struct {
	TotalRides     int     `json:"total_rides"`
	CompletedRides int     `json:"completed_rides"`
	Revenue        float64 `json:"revenue"`
	DistanceKm     float64 `json:"distance_km"`
	Balance        float64 `json:"balance"`
}

// Location pairs a driver with their duty-record position, for the
// dispatcher's live map.
type Location struct {
	DriverID  types.ID    `json:"driver_id"`
	FirstName string      `json:"first_name"`
	Phone     string      `json:"phone"`
	Point     types.Point `json:"point"`
	City      string      `json:"city,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Transaction kinds recorded against a driver's balance.
const (
	TxDeposit    = "deposit"
	TxCommission = "commission"
)
