// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"royaltaxi/internal/types"
)

const earthRadiusKm = 6371.0

// AvgSpeedKmh is the city-average speed used for duration estimates.
const AvgSpeedKmh = 30.0

// MinDurationMin is the floor applied to every duration estimate. Short and
// zero-distance trips still book at least this long.
const MinDurationMin = 15

// DistanceKm returns the great-circle distance in kilometres between two
// points, via the haversine formula.
func DistanceKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// EstimateDurationMin estimates trip duration in whole minutes from a
// distance at AvgSpeedKmh, floored to MinDurationMin.
func EstimateDurationMin(distanceKm float64) int {
	if distanceKm <= 0 {
		return MinDurationMin
	}
	minutes := int(distanceKm / (AvgSpeedKmh / 60.0))
	if minutes < MinDurationMin {
		return MinDurationMin
	}
	return minutes
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
