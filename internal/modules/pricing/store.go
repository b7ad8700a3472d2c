package pricing

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const commissionKey = "commission_rate"

// Store reads and writes the rate table in Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) RateFor(ctx context.Context, class VehicleClass) (Rate, error) {
	row := s.db.QueryRow(ctx, `
		SELECT class, base_fare, per_km_rate, per_minute_rate
		FROM vehicle_rates
		WHERE class = $1`, string(class),
	)
	var r Rate
	err := row.Scan(&r.Class, &r.BaseFare, &r.PerKmRate, &r.PerMinuteRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrUnknownClass
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}

func (s *Store) AllRates(ctx context.Context) ([]Rate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT class, base_fare, per_km_rate, per_minute_rate
		FROM vehicle_rates
		ORDER BY class`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var r Rate
		if err := rows.Scan(&r.Class, &r.BaseFare, &r.PerKmRate, &r.PerMinuteRate); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

func (s *Store) SetRate(ctx context.Context, r Rate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicle_rates (class, base_fare, per_km_rate, per_minute_rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (class) DO UPDATE
		SET base_fare = EXCLUDED.base_fare,
		    per_km_rate = EXCLUDED.per_km_rate,
		    per_minute_rate = EXCLUDED.per_minute_rate,
		    updated_at = NOW()`,
		string(r.Class), r.BaseFare, r.PerKmRate, r.PerMinuteRate,
	)
	return err
}

// CommissionRate falls back to the default when no admin has set one.
func (s *Store) CommissionRate(ctx context.Context) (float64, error) {
	row := s.db.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, commissionKey)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultCommissionRate, nil
	}
	if err != nil {
		return 0, err
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return DefaultCommissionRate, nil
	}
	return rate, nil
}

func (s *Store) SetCommissionRate(ctx context.Context, rate float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO system_config (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()`,
		commissionKey, strconv.FormatFloat(rate, 'f', -1, 64),
	)
	return err
}
