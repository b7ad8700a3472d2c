// Package types holds small value types shared across modules.
package types

import (
	"crypto/rand"
	"encoding/hex"
)

// ID identifies users, customers, and rides. IDs are opaque hex strings
// generated at creation time.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return ID(hex.EncodeToString(b[:]))
}

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
