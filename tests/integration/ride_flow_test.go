// DB-backed tests for the ride lifecycle stores. They gate on TAXI_TEST_DSN
// and expect the migrations in migrations/ to have been applied.
package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"royaltaxi/internal/modules/customer"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/modules/ride"
	"royaltaxi/internal/types"
)

func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TAXI_TEST_DSN"))
	if dsn == "" {
		t.Skip("TAXI_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func seedDriver(t *testing.T, db *pgxpool.Pool, balance float64) types.ID {
	t.Helper()
	id := types.NewID()
	phone := fmt.Sprintf("+99890%d", time.Now().UnixNano()%10000000)
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, phone, first_name, role, is_active, is_approved, balance)
		VALUES ($1, $2, 'Test', 'driver', TRUE, TRUE, $3)`,
		string(id), phone, balance,
	)
	if err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM transactions WHERE driver_id = $1`, string(id))
		_, _ = db.Exec(context.Background(), `DELETE FROM driver_duty WHERE driver_id = $1`, string(id))
		_, _ = db.Exec(context.Background(), `UPDATE rides SET driver_id = NULL WHERE driver_id = $1`, string(id))
		_, _ = db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, string(id))
	})
	return id
}

func seedDispatcher(t *testing.T, db *pgxpool.Pool) types.ID {
	t.Helper()
	id := types.NewID()
	phone := fmt.Sprintf("+99891%d", time.Now().UnixNano()%10000000)
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, phone, role, is_active, is_approved)
		VALUES ($1, $2, 'dispatcher', TRUE, TRUE)`,
		string(id), phone,
	)
	if err != nil {
		t.Fatalf("seed dispatcher: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, string(id))
	})
	return id
}

func seedRide(t *testing.T, db *pgxpool.Pool, store *ride.PgStore, fare float64) (*ride.Ride, types.ID) {
	t.Helper()
	custStore := customer.NewStore(db)
	phone := fmt.Sprintf("+99893%d", time.Now().UnixNano()%10000000)
	cust, err := custStore.UpsertByPhone(context.Background(), phone, "Integration Test")
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	dispatcherID := seedDispatcher(t, db)

	r := &ride.Ride{
		ID:           types.NewID(),
		CustomerID:   cust.ID,
		DispatcherID: dispatcherID,
		Status:       ride.StatusPending,
		VehicleClass: pricing.ClassEconomy,
		Pickup:       ride.Location{Point: types.Point{Lat: 41.3111, Lng: 69.2797}, City: "Tashkent"},
		Dropoff:      ride.Location{Point: types.Point{Lat: 41.3275, Lng: 69.2813}},
		DistanceKm:   1.9,
		DurationMin:  15,
		Fare:         fare,
		Currency:     "UZS",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("create ride: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM payments WHERE ride_id = $1`, string(r.ID))
		_, _ = db.Exec(context.Background(), `DELETE FROM ride_events WHERE ride_id = $1`, string(r.ID))
		_, _ = db.Exec(context.Background(), `DELETE FROM transactions WHERE ride_id = $1`, string(r.ID))
		_, _ = db.Exec(context.Background(), `DELETE FROM rides WHERE id = $1`, string(r.ID))
		_, _ = db.Exec(context.Background(), `DELETE FROM customers WHERE id = $1`, string(cust.ID))
	})
	return r, cust.ID
}

func TestAcceptCAS_DB(t *testing.T) {
	db := testDB(t)
	store := ride.NewStore(db)
	r, _ := seedRide(t, db, store, 50000)
	d1 := seedDriver(t, db, 60000)
	d2 := seedDriver(t, db, 60000)

	ctx := context.Background()
	ok, err := store.AcceptCAS(ctx, r.ID, d1)
	if err != nil || !ok {
		t.Fatalf("first accept: ok=%v err=%v", ok, err)
	}
	ok, err = store.AcceptCAS(ctx, r.ID, d2)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if ok {
		t.Fatal("second accept must lose the race")
	}

	got, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ride.StatusAccepted || got.DriverID == nil || *got.DriverID != d1 {
		t.Fatalf("ride = %+v", got)
	}
}

func TestCompleteSettlement_DB(t *testing.T) {
	db := testDB(t)
	store := ride.NewStore(db)
	r, _ := seedRide(t, db, store, 50000)
	d1 := seedDriver(t, db, 60000)

	ctx := context.Background()
	if ok, err := store.AcceptCAS(ctx, r.ID, d1); err != nil || !ok {
		t.Fatalf("accept: ok=%v err=%v", ok, err)
	}
	if ok, err := store.StartCAS(ctx, r.ID); err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}

	settlement, err := store.Complete(ctx, ride.CompleteParams{
		RideID:         r.ID,
		DriverID:       d1,
		From:           ride.StatusInProgress,
		FinalFare:      50000,
		CommissionRate: 0.10,
		Commission:     5000,
		DriverEarnings: 45000,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if settlement.RemainingBalance != 55000 {
		t.Fatalf("balance = %v, want 55000", settlement.RemainingBalance)
	}

	drvStore := driver.NewStore(db)
	d, err := drvStore.Get(ctx, d1)
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	if d.Balance != 55000 {
		t.Fatalf("persisted balance = %v, want 55000", d.Balance)
	}

	// A second completion must hit the conflict path, not double-debit.
	_, err = store.Complete(ctx, ride.CompleteParams{
		RideID: r.ID, DriverID: d1, From: ride.StatusInProgress,
		FinalFare: 50000, CommissionRate: 0.10, Commission: 5000, DriverEarnings: 45000,
	})
	if !errors.Is(err, ride.ErrConflict) {
		t.Fatalf("second complete err = %v, want conflict", err)
	}
}

func TestVehicleRateSeed_DB(t *testing.T) {
	db := testDB(t)
	store := pricing.NewStore(db)

	rate, err := store.RateFor(context.Background(), pricing.ClassEconomy)
	if err != nil {
		t.Fatalf("RateFor: %v", err)
	}
	if rate.BaseFare <= 0 || rate.PerKmRate <= 0 {
		t.Fatalf("rate = %+v", rate)
	}

	commission, err := store.CommissionRate(context.Background())
	if err != nil {
		t.Fatalf("CommissionRate: %v", err)
	}
	if commission < 0 || commission > 1 {
		t.Fatalf("commission = %v", commission)
	}
}
