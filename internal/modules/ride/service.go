package ride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"royaltaxi/internal/modules/customer"
	"royaltaxi/internal/modules/dispatch"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/eligibility"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/realtime"
	"royaltaxi/internal/types"
)

var (
	ErrNotFound     = errors.New("ride not found")
	ErrConflict     = errors.New("ride state conflict")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotAssigned  = errors.New("ride is assigned to another driver")
	ErrNotOwner     = errors.New("ride belongs to another customer")
	ErrBadRequest   = errors.New("bad request")
	ErrDenied       = errors.New("driver not eligible")
)

// ConflictError reports a lost status race along with what the ride's status
// turned out to be. errors.Is(err, ErrConflict) matches it.
type ConflictError struct {
	Current Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ride state conflict: ride is %s", e.Current)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// DeniedError carries the eligibility reason for a rejected accept.
// errors.Is(err, ErrDenied) matches it.
type DeniedError struct {
	Reason eligibility.Reason
}

func (e *DeniedError) Error() string {
	return "driver not eligible: " + e.Reason.Message()
}

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }

// Store is the lifecycle persistence surface. Conditional updates return
// false when the expected from-status no longer holds.
type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	AcceptCAS(ctx context.Context, id, driverID types.ID) (bool, error)
	StartCAS(ctx context.Context, id types.ID) (bool, error)
	CancelCAS(ctx context.Context, id types.ID, from Status, actor string) (bool, error)
	Complete(ctx context.Context, p CompleteParams) (Settlement, error)
	AppendEvent(ctx context.Context, e *Event) error
	EventsFor(ctx context.Context, id types.ID) ([]Event, error)
	ActiveByCustomer(ctx context.Context, customerID types.ID) ([]Ride, error)
	HistoryByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]Ride, error)
}

// CompleteParams drives the settlement transaction: the status flip, payment
// row, commission debit, and ledger row happen atomically.
type CompleteParams struct {
	RideID         types.ID
	DriverID       types.ID
	From           Status
	FinalFare      float64
	Dropoff        *Location
	DistanceKm     *float64
	DurationMin    *int
	CommissionRate float64
	Commission     float64
	DriverEarnings float64
}

// Quoter prices a trip and exposes the current commission rate.
type Quoter interface {
	Quote(ctx context.Context, pickup, dropoff types.Point, class pricing.VehicleClass) (pricing.Quote, error)
	CommissionRate(ctx context.Context) (float64, error)
}

// DriverGate resolves a driver's eligibility snapshot.
type DriverGate interface {
	State(ctx context.Context, driverID types.ID) (eligibility.DriverState, error)
}

// DutySource resolves a driver's duty record for the rider status view.
type DutySource interface {
	DutyFor(ctx context.Context, driverID types.ID) (driver.DutyRecord, bool, error)
}

// Customers is the phone-first customer bookkeeping the dispatcher flow needs.
type Customers interface {
	UpsertByPhone(ctx context.Context, phone, name string) (customer.Customer, error)
	RecordRide(ctx context.Context, id types.ID) error
}

// Broadcaster offers a pending ride to nearby drivers.
type Broadcaster interface {
	Broadcast(ctx context.Context, rideID types.ID, pickup types.Point, radiusKm float64) (dispatch.Result, error)
}

type Notifier interface {
	Record(ctx context.Context, userID types.ID, title, body string, category notification.Category) error
}

type Service struct {
	store     Store
	quoter    Quoter
	gate      DriverGate
	duty      DutySource
	customers Customers
	dispatch  Broadcaster
	notifier  Notifier
	pub       realtime.Publisher
	log       *logrus.Entry
}

func NewService(store Store, quoter Quoter, gate DriverGate, duty DutySource, customers Customers, dispatcher Broadcaster, notifier Notifier, pub realtime.Publisher, log *logrus.Entry) *Service {
	return &Service{
		store:     store,
		quoter:    quoter,
		gate:      gate,
		duty:      duty,
		customers: customers,
		dispatch:  dispatcher,
		notifier:  notifier,
		pub:       pub,
		log:       log,
	}
}

// SetBroadcaster injects the dispatch service after construction. The two
// services reference each other through narrow interfaces, so one of the
// links has to be set late.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.dispatch = b
}

type CreateCommand struct {
	DispatcherID  types.ID
	CustomerPhone string
	CustomerName  string
	Pickup        Location
	Dropoff       Location
	VehicleClass  pricing.VehicleClass
	RadiusKm      float64
}

// CreateDispatchOrder registers a phone-in ride and broadcasts it. The ride is
// persisted before the broadcast, so a failed broadcast leaves a pending ride
// the dispatcher can re-run.
func (s *Service) CreateDispatchOrder(ctx context.Context, cmd CreateCommand) (*Ride, dispatch.Result, error) {
	if cmd.CustomerPhone == "" || !cmd.Pickup.Valid() || !cmd.Dropoff.Valid() {
		return nil, dispatch.Result{}, ErrBadRequest
	}

	cust, err := s.customers.UpsertByPhone(ctx, cmd.CustomerPhone, cmd.CustomerName)
	if err != nil {
		return nil, dispatch.Result{}, err
	}

	quote, err := s.quoter.Quote(ctx, cmd.Pickup.Point, cmd.Dropoff.Point, cmd.VehicleClass)
	if err != nil {
		return nil, dispatch.Result{}, err
	}

	r := &Ride{
		ID:           types.NewID(),
		CustomerID:   cust.ID,
		DispatcherID: cmd.DispatcherID,
		Status:       StatusPending,
		VehicleClass: cmd.VehicleClass,
		Pickup:       cmd.Pickup,
		Dropoff:      cmd.Dropoff,
		DistanceKm:   quote.DistanceKm,
		DurationMin:  quote.DurationMin,
		Fare:         quote.Fare,
		Currency:     quote.Currency,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, dispatch.Result{}, err
	}
	s.appendEvent(ctx, r.ID, StatusNone, StatusPending, ActorDispatcher, &cmd.DispatcherID)

	if s.dispatch == nil {
		return r, dispatch.Result{RideID: r.ID}, nil
	}
	res, err := s.dispatch.Broadcast(ctx, r.ID, r.Pickup.Point, cmd.RadiusKm)
	if err != nil {
		s.log.WithError(err).WithField("ride_id", r.ID).Warn("initial broadcast failed")
		return r, dispatch.Result{RideID: r.ID}, nil
	}
	return r, res, nil
}

// Accept claims a pending ride for a driver. The eligibility gate runs first;
// the conditional update then decides the race, so exactly one driver wins.
func (s *Service) Accept(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	state, err := s.gate.State(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if dec := eligibility.Check(state); !dec.Allowed {
		return nil, &DeniedError{Reason: dec.Reason}
	}

	ok, err := s.store.AcceptCAS(ctx, rideID, driverID)
	if err != nil {
		return nil, err
	}
	r, getErr := s.store.Get(ctx, rideID)
	if getErr != nil {
		return nil, getErr
	}
	if !ok {
		return nil, &ConflictError{Current: r.Status}
	}

	s.appendEvent(ctx, rideID, StatusPending, StatusAccepted, ActorDriver, &driverID)
	s.publish(ctx, realtime.ChannelDispatchers, realtime.Message{
		Type:   "ride_accepted",
		RideID: string(rideID),
		Data:   map[string]any{"driver_id": string(driverID)},
	})
	s.publish(ctx, realtime.ChannelRiders, realtime.Message{
		Type:   "ride_accepted",
		RideID: string(rideID),
	})
	return r, nil
}

// Start moves an accepted ride to in_progress. Only the assigned driver may
// start it.
func (s *Service) Start(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := assignedTo(r, driverID); err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, StatusInProgress) {
		return nil, ErrInvalidState
	}

	ok, err := s.store.StartCAS(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ok {
		r, _ = s.store.Get(ctx, rideID)
		return nil, &ConflictError{Current: r.Status}
	}

	s.appendEvent(ctx, rideID, StatusAccepted, StatusInProgress, ActorDriver, &driverID)
	s.publish(ctx, realtime.ChannelRiders, realtime.Message{Type: "ride_started", RideID: string(rideID)})
	s.publish(ctx, realtime.ChannelDispatchers, realtime.Message{Type: "ride_started", RideID: string(rideID)})
	return s.store.Get(ctx, rideID)
}

type CompleteCommand struct {
	RideID       types.ID
	DriverID     types.ID
	Dropoff      *Location
	FareOverride *float64
}

// Complete settles the ride. The final fare is, in order of precedence: the
// explicit override, a re-quote against a corrected dropoff, or the original
// quote. The status flip, payment row, commission debit, and ledger row
// commit in one transaction.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Ride, Settlement, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, Settlement{}, err
	}
	if err := assignedTo(r, cmd.DriverID); err != nil {
		return nil, Settlement{}, err
	}
	if !CanTransition(r.Status, StatusCompleted) {
		return nil, Settlement{}, ErrInvalidState
	}

	p := CompleteParams{
		RideID:    cmd.RideID,
		DriverID:  cmd.DriverID,
		From:      r.Status,
		FinalFare: r.Fare,
	}
	switch {
	case cmd.FareOverride != nil:
		if *cmd.FareOverride <= 0 {
			return nil, Settlement{}, ErrBadRequest
		}
		if cmd.Dropoff != nil && !cmd.Dropoff.Valid() {
			return nil, Settlement{}, ErrBadRequest
		}
		p.FinalFare = *cmd.FareOverride
		p.Dropoff = cmd.Dropoff
	case cmd.Dropoff != nil:
		if !cmd.Dropoff.Valid() {
			return nil, Settlement{}, ErrBadRequest
		}
		quote, err := s.quoter.Quote(ctx, r.Pickup.Point, cmd.Dropoff.Point, r.VehicleClass)
		if err != nil {
			return nil, Settlement{}, err
		}
		p.FinalFare = quote.Fare
		p.Dropoff = cmd.Dropoff
		p.DistanceKm = &quote.DistanceKm
		p.DurationMin = &quote.DurationMin
	}

	rate, err := s.quoter.CommissionRate(ctx)
	if err != nil {
		return nil, Settlement{}, err
	}
	split := pricing.SplitCommission(p.FinalFare, rate)
	p.CommissionRate = rate
	p.Commission = split.Commission
	p.DriverEarnings = split.DriverEarnings

	settlement, err := s.store.Complete(ctx, p)
	if err != nil {
		return nil, Settlement{}, err
	}

	s.appendEvent(ctx, cmd.RideID, r.Status, StatusCompleted, ActorDriver, &cmd.DriverID)
	if err := s.customers.RecordRide(ctx, r.CustomerID); err != nil {
		s.log.WithError(err).WithField("customer_id", r.CustomerID).Warn("customer counters not updated")
	}
	msg := realtime.Message{
		Type:   "ride_completed",
		RideID: string(cmd.RideID),
		Data: map[string]any{
			"final_fare": settlement.FinalFare,
			"currency":   r.Currency,
		},
	}
	s.publish(ctx, realtime.ChannelRiders, msg)
	s.publish(ctx, realtime.ChannelDispatchers, msg)

	updated, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, Settlement{}, err
	}
	return updated, settlement, nil
}

// CancelByDispatcher voids a ride in any non-terminal state.
func (s *Service) CancelByDispatcher(ctx context.Context, rideID, dispatcherID types.ID) (*Ride, error) {
	return s.cancel(ctx, rideID, ActorDispatcher, &dispatcherID, func(r *Ride) error {
		if r.Status.Terminal() {
			return ErrInvalidState
		}
		return nil
	})
}

// CancelByRider lets the owning customer back out before the trip starts:
// pending or accepted only.
func (s *Service) CancelByRider(ctx context.Context, rideID, customerID types.ID) (*Ride, error) {
	return s.cancel(ctx, rideID, ActorRider, &customerID, func(r *Ride) error {
		if r.CustomerID != customerID {
			return ErrNotOwner
		}
		if r.Status != StatusPending && r.Status != StatusAccepted {
			return ErrInvalidState
		}
		return nil
	})
}

func (s *Service) cancel(ctx context.Context, rideID types.ID, actor string, actorID *types.ID, check func(*Ride) error) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}

	ok, err := s.store.CancelCAS(ctx, rideID, r.Status, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, _ := s.store.Get(ctx, rideID)
		return nil, &ConflictError{Current: cur.Status}
	}

	s.appendEvent(ctx, rideID, r.Status, StatusCancelled, actor, actorID)
	msg := realtime.Message{
		Type:   "ride_cancelled",
		RideID: string(rideID),
		Data:   map[string]any{"cancelled_by": actor},
	}
	s.publish(ctx, realtime.ChannelDispatchers, msg)
	s.publish(ctx, realtime.ChannelDrivers, msg)
	if actor == ActorDispatcher {
		s.publish(ctx, realtime.ChannelRiders, msg)
	}
	if r.DriverID != nil {
		s.notify(ctx, *r.DriverID, "Ride cancelled", "The ride you accepted has been cancelled.")
	}
	return s.store.Get(ctx, rideID)
}

func (s *Service) Get(ctx context.Context, rideID types.ID) (*Ride, error) {
	return s.store.Get(ctx, rideID)
}

func (s *Service) Events(ctx context.Context, rideID types.ID) ([]Event, error) {
	return s.store.EventsFor(ctx, rideID)
}

func (s *Service) ActiveForCustomer(ctx context.Context, customerID types.ID) ([]Ride, error) {
	return s.store.ActiveByCustomer(ctx, customerID)
}

func (s *Service) HistoryForCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]Ride, error) {
	return s.store.HistoryByCustomer(ctx, customerID, limit, offset)
}

// StatusSnapshot builds the rider's live view: driver position from the duty
// record and, while the trip runs, a linear remaining-cost estimate.
func (s *Service) StatusSnapshot(ctx context.Context, rideID, customerID types.ID) (Snapshot, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return Snapshot{}, err
	}
	if r.CustomerID != customerID {
		return Snapshot{}, ErrNotOwner
	}

	snap := Snapshot{
		RideID:   r.ID,
		Status:   r.Status,
		DriverID: r.DriverID,
		Fare:     r.Fare,
	}
	if r.DriverID != nil {
		if rec, found, err := s.duty.DutyFor(ctx, *r.DriverID); err == nil && found {
			snap.DriverLocation = rec.Location
			snap.DriverOnDuty = rec.OnDuty
		}
	}
	if r.Status == StatusInProgress && r.StartedAt != nil && r.DurationMin > 0 {
		elapsed := time.Since(*r.StartedAt).Minutes()
		ratio := math.Min(elapsed/float64(r.DurationMin), 1)
		remaining := math.Round(r.Fare*(1-ratio)*100) / 100
		minutes := int(math.Max(float64(r.DurationMin)-elapsed, 0))
		snap.RemainingCost = &remaining
		snap.MinutesRemaining = &minutes
	}
	return snap, nil
}

// PendingPickup exposes a pending ride's pickup for re-broadcasts.
func (s *Service) PendingPickup(ctx context.Context, rideID types.ID) (types.Point, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return types.Point{}, err
	}
	if r.Status != StatusPending {
		return types.Point{}, dispatch.ErrNotDispatchable
	}
	return r.Pickup.Point, nil
}

func assignedTo(r *Ride, driverID types.ID) error {
	if r.DriverID == nil || *r.DriverID != driverID {
		return ErrNotAssigned
	}
	return nil
}

func (s *Service) appendEvent(ctx context.Context, rideID types.ID, from, to Status, actor string, actorID *types.ID) {
	err := s.store.AppendEvent(ctx, &Event{
		RideID:     rideID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actor,
		ActorID:    actorID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.WithError(err).WithField("ride_id", rideID).Warn("event not recorded")
	}
}

func (s *Service) publish(ctx context.Context, channel string, msg realtime.Message) {
	if err := s.pub.Publish(ctx, channel, msg); err != nil {
		s.log.WithError(err).WithField("channel", channel).Warn("broadcast failed")
	}
}

func (s *Service) notify(ctx context.Context, userID types.ID, title, body string) {
	if err := s.notifier.Record(ctx, userID, title, body, notification.CategoryRideUpdate); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("notification not recorded")
	}
}
