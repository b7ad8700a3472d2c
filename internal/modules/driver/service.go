package driver

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"royaltaxi/internal/modules/eligibility"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/realtime"
	"royaltaxi/internal/types"
)

var (
	ErrNotFound      = errors.New("driver not found")
	ErrInvalidAmount = errors.New("deposit amount must be positive")
	ErrBadLocation   = errors.New("location out of range")
)

// Store is the persistence surface the ledger needs.
type Store interface {
	Get(ctx context.Context, driverID types.ID) (Driver, error)
	DutyFor(ctx context.Context, driverID types.ID) (DutyRecord, bool, error)
	UpsertDuty(ctx context.Context, rec DutyRecord) (DutyRecord, error)
	Deposit(ctx context.Context, driverID types.ID, amount float64) (float64, error)
	Stats(ctx context.Context, driverID types.ID) (Stats, error)
	SetActive(ctx context.Context, driverID types.ID, active bool) error
	SetApproved(ctx context.Context, driverID types.ID, approved bool) error
	HasActiveRides(ctx context.Context, driverID types.ID) (bool, error)
	OnDutyLocations(ctx context.Context) ([]Location, error)
}

// Notifier records an in-app notification for a user.
type Notifier interface {
	Record(ctx context.Context, userID types.ID, title, body string, category notification.Category) error
}

type Service struct {
	store    Store
	notifier Notifier
	pub      realtime.Publisher
	log      *logrus.Entry
}

func NewService(store Store, notifier Notifier, pub realtime.Publisher, log *logrus.Entry) *Service {
	return &Service{store: store, notifier: notifier, pub: pub, log: log}
}

// SetDuty flips the driver's duty flag and records their position. Dispatchers
// always see the update; riders only when the driver is mid-ride.
func (s *Service) SetDuty(ctx context.Context, driverID types.ID, onDuty bool, loc *types.Point, city string) (DutyRecord, error) {
	if loc != nil && !loc.Valid() {
		return DutyRecord{}, ErrBadLocation
	}
	if _, err := s.store.Get(ctx, driverID); err != nil {
		return DutyRecord{}, err
	}

	rec, err := s.store.UpsertDuty(ctx, DutyRecord{
		DriverID: driverID,
		OnDuty:   onDuty,
		Location: loc,
		City:     city,
	})
	if err != nil {
		return DutyRecord{}, err
	}

	msg := realtime.Message{
		Type: "driver_status",
		Data: map[string]any{
			"driver_id": string(driverID),
			"on_duty":   rec.OnDuty,
		},
	}
	if rec.Location != nil {
		msg.Data["location"] = rec.Location
	}
	s.publish(ctx, realtime.ChannelDispatchers, msg)

	if active, err := s.store.HasActiveRides(ctx, driverID); err == nil && active {
		s.publish(ctx, realtime.ChannelRiders, msg)
	}
	return rec, nil
}

// Deposit credits the driver's balance and appends a ledger row. The store
// serializes concurrent deposits per driver.
func (s *Service) Deposit(ctx context.Context, driverID types.ID, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.store.Deposit(ctx, driverID, amount)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{
		"driver_id": driverID,
		"amount":    amount,
		"balance":   balance,
	}).Info("deposit recorded")
	return balance, nil
}

// State assembles the eligibility-gate input for a driver. A missing duty
// record is reported as such rather than defaulted.
func (s *Service) State(ctx context.Context, driverID types.ID) (eligibility.DriverState, error) {
	d, err := s.store.Get(ctx, driverID)
	if err != nil {
		return eligibility.DriverState{}, err
	}
	duty, found, err := s.store.DutyFor(ctx, driverID)
	if err != nil {
		return eligibility.DriverState{}, err
	}
	return eligibility.DriverState{
		Active:        d.IsActive,
		Approved:      d.IsApproved,
		HasDutyRecord: found,
		OnDuty:        found && duty.OnDuty,
		Balance:       d.Balance,
	}, nil
}

func (s *Service) Stats(ctx context.Context, driverID types.ID) (Stats, error) {
	return s.store.Stats(ctx, driverID)
}

func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	return s.store.OnDutyLocations(ctx)
}

// Block deactivates a driver account; an inactive driver fails the gate on
// every ride offer until unblocked.
func (s *Service) Block(ctx context.Context, driverID types.ID) error {
	if err := s.store.SetActive(ctx, driverID, false); err != nil {
		return err
	}
	s.notify(ctx, driverID, "Account blocked", "Your account has been blocked by a dispatcher.")
	return nil
}

func (s *Service) Unblock(ctx context.Context, driverID types.ID) error {
	if err := s.store.SetActive(ctx, driverID, true); err != nil {
		return err
	}
	s.notify(ctx, driverID, "Account unblocked", "Your account is active again.")
	return nil
}

func (s *Service) Approve(ctx context.Context, driverID types.ID) error {
	if err := s.store.SetApproved(ctx, driverID, true); err != nil {
		return err
	}
	s.notify(ctx, driverID, "Account approved", "You can now go on duty and accept rides.")
	return nil
}

func (s *Service) Unapprove(ctx context.Context, driverID types.ID) error {
	return s.store.SetApproved(ctx, driverID, false)
}

func (s *Service) publish(ctx context.Context, channel string, msg realtime.Message) {
	if err := s.pub.Publish(ctx, channel, msg); err != nil {
		s.log.WithError(err).WithField("channel", channel).Warn("broadcast failed")
	}
}

func (s *Service) notify(ctx context.Context, userID types.ID, title, body string) {
	if err := s.notifier.Record(ctx, userID, title, body, notification.CategoryAccount); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("notification not recorded")
	}
}
