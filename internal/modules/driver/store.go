package driver

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royaltaxi/internal/types"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Get(ctx context.Context, driverID types.ID) (Driver, error) {
	var d Driver
	err := s.db.QueryRow(ctx, `
		SELECT id, phone, COALESCE(first_name, ''), COALESCE(last_name, ''),
		       is_active, is_approved, balance, created_at
		FROM users
		WHERE id = $1 AND role = 'driver'`, string(driverID),
	).Scan(&d.ID, &d.Phone, &d.FirstName, &d.LastName, &d.IsActive, &d.IsApproved, &d.Balance, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrNotFound
	}
	if err != nil {
		return Driver{}, err
	}
	return d, nil
}

func (s *PgStore) DutyFor(ctx context.Context, driverID types.ID) (DutyRecord, bool, error) {
	var (
		rec      DutyRecord
		lat, lng *float64
		city     *string
	)
	err := s.db.QueryRow(ctx, `
		SELECT driver_id, on_duty, lat, lng, city, updated_at
		FROM driver_duty
		WHERE driver_id = $1`, string(driverID),
	).Scan(&rec.DriverID, &rec.OnDuty, &lat, &lng, &city, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DutyRecord{}, false, nil
	}
	if err != nil {
		return DutyRecord{}, false, err
	}
	if lat != nil && lng != nil {
		rec.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	if city != nil {
		rec.City = *city
	}
	return rec, true, nil
}

// UpsertDuty writes the duty row. A nil location keeps the previously stored
// coordinates so an off-duty toggle does not erase the last known position.
func (s *PgStore) UpsertDuty(ctx context.Context, rec DutyRecord) (DutyRecord, error) {
	var lat, lng *float64
	if rec.Location != nil {
		lat, lng = &rec.Location.Lat, &rec.Location.Lng
	}
	var city *string
	if rec.City != "" {
		city = &rec.City
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_duty (driver_id, on_duty, lat, lng, city, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (driver_id) DO UPDATE SET
			on_duty    = EXCLUDED.on_duty,
			lat        = COALESCE(EXCLUDED.lat, driver_duty.lat),
			lng        = COALESCE(EXCLUDED.lng, driver_duty.lng),
			city       = COALESCE(EXCLUDED.city, driver_duty.city),
			updated_at = NOW()`,
		string(rec.DriverID), rec.OnDuty, lat, lng, city,
	)
	if err != nil {
		return DutyRecord{}, err
	}
	out, _, err := s.DutyFor(ctx, rec.DriverID)
	return out, err
}

// Deposit credits the balance inside a transaction, locking the user row so
// concurrent deposits and commission debits serialize.
func (s *PgStore) Deposit(ctx context.Context, driverID types.ID, amount float64) (float64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var balance float64
	err = tx.QueryRow(ctx, `
		SELECT balance FROM users
		WHERE id = $1 AND role = 'driver'
		FOR UPDATE`, string(driverID),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	balance += amount
	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = $1 WHERE id = $2`,
		balance, string(driverID),
	); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (driver_id, amount, kind, created_at)
		VALUES ($1, $2, $3, NOW())`,
		string(driverID), amount, TxDeposit,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PgStore) Stats(ctx context.Context, driverID types.ID) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COALESCE(SUM(final_fare) FILTER (WHERE status = 'completed'), 0),
		       COALESCE(SUM(distance_km) FILTER (WHERE status = 'completed'), 0)
		FROM rides
		WHERE driver_id = $1`, string(driverID),
	).Scan(&st.TotalRides, &st.CompletedRides, &st.Revenue, &st.DistanceKm)
	if err != nil {
		return Stats{}, err
	}
	d, err := s.Get(ctx, driverID)
	if err != nil {
		return Stats{}, err
	}
	st.Balance = d.Balance
	return st, nil
}

func (s *PgStore) SetActive(ctx context.Context, driverID types.ID, active bool) error {
	return s.setFlag(ctx, driverID, "is_active", active)
}

func (s *PgStore) SetApproved(ctx context.Context, driverID types.ID, approved bool) error {
	return s.setFlag(ctx, driverID, "is_approved", approved)
}

func (s *PgStore) setFlag(ctx context.Context, driverID types.ID, column string, value bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET `+column+` = $1 WHERE id = $2 AND role = 'driver'`,
		value, string(driverID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) HasActiveRides(ctx context.Context, driverID types.ID) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rides
			WHERE driver_id = $1 AND status IN ('accepted', 'in_progress')
		)`, string(driverID),
	).Scan(&active)
	return active, err
}

// OnDutyLocations lists on-duty active drivers with a known position, for the
// dispatcher's live map.
func (s *PgStore) OnDutyLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, COALESCE(u.first_name, ''), u.phone, d.lat, d.lng, COALESCE(d.city, ''), d.updated_at
		FROM driver_duty d
		JOIN users u ON u.id = d.driver_id
		WHERE d.on_duty AND u.is_active AND d.lat IS NOT NULL AND d.lng IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.DriverID, &loc.FirstName, &loc.Phone, &loc.Point.Lat, &loc.Point.Lng, &loc.City, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}
