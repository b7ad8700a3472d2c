// Package pricing computes fare quotes and commission splits from the
// admin-managed rate table.
package pricing

// Currency is the only settlement currency the platform supports.
const Currency = "UZS"

// VehicleClass selects a row of the rate table.
type VehicleClass string

const (
	ClassEconomy  VehicleClass = "economy"
	ClassComfort  VehicleClass = "comfort"
	ClassBusiness VehicleClass = "business"
)

// AllClasses returns the supported vehicle classes.
func AllClasses() []VehicleClass {
	return []VehicleClass{ClassEconomy, ClassComfort, ClassBusiness}
}

// Valid reports whether the class is one the rate table knows.
func (c VehicleClass) Valid() bool {
	switch c {
	case ClassEconomy, ClassComfort, ClassBusiness:
		return true
	}
	return false
}

// Rate is one vehicle class's tariff. Amounts are in som.
type Rate struct {
	Class         VehicleClass `json:"class"`
	BaseFare      float64      `json:"base_fare"`
	PerKmRate     float64      `json:"per_km_rate"`
	PerMinuteRate float64      `json:"per_minute_rate"`
}

// Quote is a fare estimate for a prospective trip.
type Quote struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Fare        float64 `json:"fare"`
	Currency    string  `json:"currency"`
}

// CommissionSplit is the platform/driver division of a completed fare.
type CommissionSplit struct {
	Commission     float64 `json:"commission"`
	DriverEarnings float64 `json:"driver_earnings"`
}

// DefaultCommissionRate applies when no admin has configured one.
const DefaultCommissionRate = 0.10
