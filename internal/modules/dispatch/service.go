package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"royaltaxi/internal/geo"
	"royaltaxi/internal/modules/eligibility"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/realtime"
	"royaltaxi/internal/types"
)

var ErrNotDispatchable = errors.New("ride is not awaiting a driver")

// CandidateSource lists drivers whose duty record marks them on duty with a
// known position. The gate filters them further.
type CandidateSource interface {
	OnDutyCandidates(ctx context.Context) ([]Candidate, error)
}

// RideSource resolves a pending ride's pickup point for re-broadcasts. It
// returns ErrNotDispatchable when the ride already left the pending state.
type RideSource interface {
	PendingPickup(ctx context.Context, rideID types.ID) (types.Point, error)
}

// Bookkeeper records who was offered a ride and when, for dispatcher
// visibility. Writes are best effort; failures never abort a broadcast.
type Bookkeeper interface {
	RecordDispatch(ctx context.Context, rideID types.ID, driverIDs []types.ID, radiusKm float64) error
	NotifiedDrivers(ctx context.Context, rideID types.ID) ([]types.ID, error)
	Rounds(ctx context.Context, rideID types.ID) (int64, error)
}

// Notifier persists one in-app notification row per offered driver.
type Notifier interface {
	RecordBatch(ctx context.Context, userIDs []types.ID, title, body string, category notification.Category) error
}

type Service struct {
	candidates    CandidateSource
	rides         RideSource
	book          Bookkeeper
	notifier      Notifier
	pub           realtime.Publisher
	defaultRadius float64
	log           *logrus.Entry
}

func NewService(candidates CandidateSource, rides RideSource, book Bookkeeper, notifier Notifier, pub realtime.Publisher, defaultRadiusKm float64, log *logrus.Entry) *Service {
	return &Service{
		candidates:    candidates,
		rides:         rides,
		book:          book,
		notifier:      notifier,
		pub:           pub,
		defaultRadius: defaultRadiusKm,
		log:           log,
	}
}

// Broadcast offers the ride to every eligible on-duty driver within radiusKm
// of the pickup, boundary inclusive. A non-positive radius falls back to the
// configured default.
func (s *Service) Broadcast(ctx context.Context, rideID types.ID, pickup types.Point, radiusKm float64) (Result, error) {
	if radiusKm <= 0 {
		radiusKm = s.defaultRadius
	}

	all, err := s.candidates.OnDutyCandidates(ctx)
	if err != nil {
		return Result{}, err
	}

	var ids []types.ID
	for _, c := range all {
		if !eligibility.Check(c.State).Allowed {
			continue
		}
		if geo.DistanceKm(c.Location, pickup) > radiusKm {
			continue
		}
		ids = append(ids, c.DriverID)
	}

	res := Result{RideID: rideID, DriverIDs: ids, Count: len(ids), RadiusKm: radiusKm}
	if len(ids) == 0 {
		s.log.WithFields(logrus.Fields{"ride_id": rideID, "radius_km": radiusKm}).
			Info("no drivers in range")
		return res, nil
	}

	body := fmt.Sprintf("Pickup within %.1f km of your position.", radiusKm)
	if err := s.notifier.RecordBatch(ctx, ids, "New ride request", body, notification.CategoryRideUpdate); err != nil {
		s.log.WithError(err).WithField("ride_id", rideID).Warn("offer notifications not recorded")
	}

	msg := realtime.Message{
		Type:   "ride_offer",
		RideID: string(rideID),
		Data: map[string]any{
			"pickup":    pickup,
			"radius_km": radiusKm,
		},
	}
	if err := s.pub.Publish(ctx, realtime.ChannelDrivers, msg); err != nil {
		s.log.WithError(err).WithField("ride_id", rideID).Warn("offer broadcast failed")
	}

	if err := s.book.RecordDispatch(ctx, rideID, ids, radiusKm); err != nil {
		s.log.WithError(err).WithField("ride_id", rideID).Warn("dispatch bookkeeping failed")
	}

	s.log.WithFields(logrus.Fields{
		"ride_id":   rideID,
		"radius_km": radiusKm,
		"drivers":   len(ids),
	}).Info("ride broadcast")
	return res, nil
}

// Rebroadcast re-runs the offer for a ride still waiting on a driver. It is an
// explicit dispatcher action; the radius never widens on its own.
func (s *Service) Rebroadcast(ctx context.Context, rideID types.ID, radiusKm float64) (Result, error) {
	pickup, err := s.rides.PendingPickup(ctx, rideID)
	if err != nil {
		return Result{}, err
	}
	return s.Broadcast(ctx, rideID, pickup, radiusKm)
}

// Status reports a ride's dispatch history: every driver offered the ride so
// far and how many broadcast rounds have run.
func (s *Service) Status(ctx context.Context, rideID types.ID) (Status, error) {
	ids, err := s.book.NotifiedDrivers(ctx, rideID)
	if err != nil {
		return Status{}, err
	}
	rounds, err := s.book.Rounds(ctx, rideID)
	if err != nil {
		return Status{}, err
	}
	return Status{RideID: rideID, NotifiedDrivers: ids, Rounds: rounds}, nil
}
