// Package customer tracks the people rides are booked for. Dispatchers book
// on behalf of phone-in callers, so customers are upserted by phone number.
package customer

import (
	"time"

	"royaltaxi/internal/types"
)

type Customer struct {
	ID         types.ID
	Phone      string
	FirstName  string
	LastName   string
	CreatedAt  time.Time
	LastRideAt *time.Time
	TotalRides int
}

// FullName joins the name parts for display.
func (c Customer) FullName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	}
	return c.Phone
}
