package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royaltaxi/internal/types"
)

var ErrNotFound = errors.New("customer not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// UpsertByPhone finds the customer for a phone number, creating one on first
// contact. An optional full name is split into first/last on create only.
func (s *Store) UpsertByPhone(ctx context.Context, phone, name string) (Customer, error) {
	c, err := s.FindByPhone(ctx, phone)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Customer{}, err
	}

	first, last := splitName(name)
	c = Customer{
		ID:        types.NewID(),
		Phone:     phone,
		FirstName: first,
		LastName:  last,
		CreatedAt: time.Now().UTC(),
	}
	// A concurrent insert of the same phone wins via the unique constraint;
	// fall back to reading the winner.
	_, err = s.db.Exec(ctx, `
		INSERT INTO customers (id, phone, first_name, last_name, created_at, total_rides)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (phone) DO NOTHING`,
		string(c.ID), c.Phone, c.FirstName, c.LastName, c.CreatedAt,
	)
	if err != nil {
		return Customer{}, err
	}
	return s.FindByPhone(ctx, phone)
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (Customer, error) {
	return s.scanOne(s.db.QueryRow(ctx, `
		SELECT id, phone, first_name, last_name, created_at, last_ride_at, total_rides
		FROM customers WHERE phone = $1`, phone,
	))
}

func (s *Store) Get(ctx context.Context, id types.ID) (Customer, error) {
	return s.scanOne(s.db.QueryRow(ctx, `
		SELECT id, phone, first_name, last_name, created_at, last_ride_at, total_rides
		FROM customers WHERE id = $1`, string(id),
	))
}

// RecordRide bumps the ride counters at completion. Informational only.
func (s *Store) RecordRide(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE customers
		SET total_rides = total_rides + 1, last_ride_at = NOW()
		WHERE id = $1`, string(id),
	)
	return err
}

func (s *Store) scanOne(row pgx.Row) (Customer, error) {
	var c Customer
	var first, last *string
	err := row.Scan(&c.ID, &c.Phone, &first, &last, &c.CreatedAt, &c.LastRideAt, &c.TotalRides)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	if first != nil {
		c.FirstName = *first
	}
	if last != nil {
		c.LastName = *last
	}
	return c, nil
}

func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}
