// Package notification persists in-app notification records. Delivery (push,
// SMS) is an external concern; rows here are the system of record.
package notification

import (
	"time"

	"royaltaxi/internal/types"
)

// Category tags a notification for client-side routing.
type Category string

const (
	CategoryRideUpdate Category = "ride_update"
	CategoryAccount    Category = "account"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    types.ID  `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  Category  `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
