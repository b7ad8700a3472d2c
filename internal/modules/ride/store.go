package ride

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/types"
)

const rideColumns = `
	id, customer_id, driver_id, dispatcher_id, status, vehicle_class,
	pickup_lat, pickup_lng, pickup_address, pickup_city,
	dropoff_lat, dropoff_lng, dropoff_address, dropoff_city,
	distance_km, duration_min, fare, final_fare, currency,
	created_at, accepted_at, started_at, completed_at, cancelled_at, cancelled_by`

type PgStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, customer_id, dispatcher_id, status, vehicle_class,
			pickup_lat, pickup_lng, pickup_address, pickup_city,
			dropoff_lat, dropoff_lng, dropoff_address, dropoff_city,
			distance_km, duration_min, fare, currency, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		string(r.ID), string(r.CustomerID), string(r.DispatcherID), string(r.Status), string(r.VehicleClass),
		r.Pickup.Lat, r.Pickup.Lng, nullable(r.Pickup.Address), nullable(r.Pickup.City),
		r.Dropoff.Lat, r.Dropoff.Lng, nullable(r.Dropoff.Address), nullable(r.Dropoff.City),
		r.DistanceKm, r.DurationMin, r.Fare, r.Currency, r.CreatedAt,
	)
	return err
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	r, err := scanRide(s.db.QueryRow(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// AcceptCAS claims a pending ride for the driver. The WHERE clause is the
// whole race: whichever driver's update lands first flips the status and the
// rest see zero rows.
func (s *PgStore) AcceptCAS(ctx context.Context, id, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET driver_id = $2, status = $3, accepted_at = NOW()
		WHERE id = $1 AND status = $4`,
		string(id), string(driverID), string(StatusAccepted), string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) StartCAS(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $2, started_at = NOW()
		WHERE id = $1 AND status = $3`,
		string(id), string(StatusInProgress), string(StatusAccepted),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) CancelCAS(ctx context.Context, id types.ID, from Status, actor string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $2, cancelled_at = NOW(), cancelled_by = $3
		WHERE id = $1 AND status = $4`,
		string(id), string(StatusCancelled), actor, string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Complete runs the settlement transaction: flip the ride to completed,
// record the cash payment, debit the commission from the locked driver row,
// and append the ledger entry. Everything commits or nothing does.
func (s *PgStore) Complete(ctx context.Context, p CompleteParams) (Settlement, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Settlement{}, err
	}
	defer tx.Rollback(ctx)

	args := []any{string(p.RideID), string(p.From), string(p.DriverID), p.FinalFare}
	set := `status = 'completed', completed_at = NOW(), final_fare = $4`
	if p.Dropoff != nil {
		set += `, dropoff_lat = $5, dropoff_lng = $6, dropoff_address = $7, dropoff_city = $8`
		args = append(args, p.Dropoff.Lat, p.Dropoff.Lng, nullable(p.Dropoff.Address), nullable(p.Dropoff.City))
	}
	if p.DistanceKm != nil && p.DurationMin != nil {
		set += `, distance_km = $9, duration_min = $10`
		args = append(args, *p.DistanceKm, *p.DurationMin)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE rides SET `+set+`
		WHERE id = $1 AND status = $2 AND driver_id = $3`, args...)
	if err != nil {
		return Settlement{}, err
	}
	if tag.RowsAffected() == 0 {
		cur, getErr := s.Get(ctx, p.RideID)
		if getErr != nil {
			return Settlement{}, getErr
		}
		return Settlement{}, &ConflictError{Current: cur.Status}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (ride_id, amount, currency, method, status, created_at)
		VALUES ($1, $2, 'UZS', 'cash', 'completed', NOW())`,
		string(p.RideID), p.FinalFare,
	); err != nil {
		return Settlement{}, err
	}

	var balance float64
	err = tx.QueryRow(ctx, `
		SELECT balance FROM users
		WHERE id = $1 AND role = 'driver'
		FOR UPDATE`, string(p.DriverID),
	).Scan(&balance)
	if err != nil {
		return Settlement{}, err
	}
	balance -= p.Commission
	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = $1 WHERE id = $2`,
		balance, string(p.DriverID),
	); err != nil {
		return Settlement{}, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (driver_id, ride_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		string(p.DriverID), string(p.RideID), p.Commission, driver.TxCommission,
	); err != nil {
		return Settlement{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Settlement{}, err
	}
	return Settlement{
		FinalFare:        p.FinalFare,
		CommissionRate:   p.CommissionRate,
		Commission:       p.Commission,
		DriverEarnings:   p.DriverEarnings,
		RemainingBalance: balance,
	}, nil
}

func (s *PgStore) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_events (ride_id, from_status, to_status, actor_type, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RideID), string(e.FromStatus), string(e.ToStatus), e.ActorType, actorID, e.CreatedAt,
	)
	return err
}

func (s *PgStore) EventsFor(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ride_id, from_status, to_status, actor_type, actor_id, created_at
		FROM ride_events
		WHERE ride_id = $1
		ORDER BY id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var actorID *string
		if err := rows.Scan(&e.ID, &e.RideID, &e.FromStatus, &e.ToStatus, &e.ActorType, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorID != nil {
			v := types.ID(*actorID)
			e.ActorID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) ActiveByCustomer(ctx context.Context, customerID types.ID) ([]Ride, error) {
	return s.list(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE customer_id = $1 AND status IN ('pending', 'accepted', 'in_progress')
		ORDER BY created_at DESC`, string(customerID))
}

func (s *PgStore) HistoryByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]Ride, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.list(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, string(customerID), limit, offset)
}

func (s *PgStore) list(ctx context.Context, query string, args ...any) ([]Ride, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRide(row pgx.Row) (*Ride, error) {
	var (
		r                        Ride
		driverID, cancelledBy    *string
		pickupAddr, pickupCity   *string
		dropoffAddr, dropoffCity *string
	)
	err := row.Scan(
		&r.ID, &r.CustomerID, &driverID, &r.DispatcherID, &r.Status, &r.VehicleClass,
		&r.Pickup.Lat, &r.Pickup.Lng, &pickupAddr, &pickupCity,
		&r.Dropoff.Lat, &r.Dropoff.Lng, &dropoffAddr, &dropoffCity,
		&r.DistanceKm, &r.DurationMin, &r.Fare, &r.FinalFare, &r.Currency,
		&r.CreatedAt, &r.AcceptedAt, &r.StartedAt, &r.CompletedAt, &r.CancelledAt, &cancelledBy,
	)
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		v := types.ID(*driverID)
		r.DriverID = &v
	}
	r.CancelledBy = cancelledBy
	if pickupAddr != nil {
		r.Pickup.Address = *pickupAddr
	}
	if pickupCity != nil {
		r.Pickup.City = *pickupCity
	}
	if dropoffAddr != nil {
		r.Dropoff.Address = *dropoffAddr
	}
	if dropoffCity != nil {
		r.Dropoff.City = *dropoffCity
	}
	return &r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
