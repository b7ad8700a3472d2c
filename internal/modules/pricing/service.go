package pricing

import (
	"context"
	"errors"
	"math"

	"royaltaxi/internal/geo"
	"royaltaxi/internal/types"
)

var (
	ErrUnknownClass = errors.New("unknown vehicle class")
	ErrInvalidRate  = errors.New("commission rate must be between 0 and 1")
)

// ConfigStore provides the rate table and commission rate. Rates are read on
// every calculation so admin changes take effect immediately.
type ConfigStore interface {
	RateFor(ctx context.Context, class VehicleClass) (Rate, error)
	AllRates(ctx context.Context) ([]Rate, error)
	SetRate(ctx context.Context, r Rate) error
	CommissionRate(ctx context.Context) (float64, error)
	SetCommissionRate(ctx context.Context, rate float64) error
}

type Service struct {
	store ConfigStore
}

func NewService(store ConfigStore) *Service {
	return &Service{store: store}
}

// Quote estimates distance, duration, and fare for a trip between two points.
func (s *Service) Quote(ctx context.Context, pickup, dropoff types.Point, class VehicleClass) (Quote, error) {
	if !class.Valid() {
		return Quote{}, ErrUnknownClass
	}
	rate, err := s.store.RateFor(ctx, class)
	if err != nil {
		return Quote{}, err
	}
	distance := round2(geo.DistanceKm(pickup, dropoff))
	duration := geo.EstimateDurationMin(distance)
	return Quote{
		DistanceKm:  distance,
		DurationMin: duration,
		Fare:        round2(Fare(distance, duration, rate)),
		Currency:    Currency,
	}, nil
}

// Fare prices a trip against a rate row.
func Fare(distanceKm float64, durationMin int, r Rate) float64 {
	return r.BaseFare + distanceKm*r.PerKmRate + float64(durationMin)*r.PerMinuteRate
}

// SplitCommission divides a fare between platform and driver. The rate must
// already be validated to [0,1] by the caller.
func SplitCommission(fare, rate float64) CommissionSplit {
	commission := round2(fare * rate)
	return CommissionSplit{
		Commission:     commission,
		DriverEarnings: round2(fare - commission),
	}
}

// CommissionRate returns the current platform cut as a fraction.
func (s *Service) CommissionRate(ctx context.Context) (float64, error) {
	return s.store.CommissionRate(ctx)
}

// SetCommissionRate updates the platform cut. Rejects rates outside [0,1].
func (s *Service) SetCommissionRate(ctx context.Context, rate float64) error {
	if rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return s.store.SetCommissionRate(ctx, rate)
}

// Rates returns the full rate table.
func (s *Service) Rates(ctx context.Context) ([]Rate, error) {
	return s.store.AllRates(ctx)
}

// SetRate replaces one class's tariff.
func (s *Service) SetRate(ctx context.Context, r Rate) error {
	if !r.Class.Valid() {
		return ErrUnknownClass
	}
	if r.BaseFare < 0 || r.PerKmRate < 0 || r.PerMinuteRate < 0 {
		return ErrInvalidRate
	}
	return s.store.SetRate(ctx, r)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
