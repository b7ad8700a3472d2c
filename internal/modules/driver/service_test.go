package driver

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"royaltaxi/internal/modules/eligibility"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/realtime"
	"royaltaxi/internal/types"
)

type fakeStore struct {
	drivers     map[types.ID]Driver
	duty        map[types.ID]DutyRecord
	activeRides map[types.ID]bool
	deposits    []float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		drivers:     make(map[types.ID]Driver),
		duty:        make(map[types.ID]DutyRecord),
		activeRides: make(map[types.ID]bool),
	}
}

func (f *fakeStore) Get(_ context.Context, id types.ID) (Driver, error) {
	d, ok := f.drivers[id]
	if !ok {
		return Driver{}, ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) DutyFor(_ context.Context, id types.ID) (DutyRecord, bool, error) {
	rec, ok := f.duty[id]
	return rec, ok, nil
}

func (f *fakeStore) UpsertDuty(_ context.Context, rec DutyRecord) (DutyRecord, error) {
	prev, ok := f.duty[rec.DriverID]
	if ok && rec.Location == nil {
		rec.Location = prev.Location
	}
	f.duty[rec.DriverID] = rec
	return rec, nil
}

func (f *fakeStore) Deposit(_ context.Context, id types.ID, amount float64) (float64, error) {
	d, ok := f.drivers[id]
	if !ok {
		return 0, ErrNotFound
	}
	d.Balance += amount
	f.drivers[id] = d
	f.deposits = append(f.deposits, amount)
	return d.Balance, nil
}

func (f *fakeStore) Stats(_ context.Context, id types.ID) (Stats, error) {
	d, ok := f.drivers[id]
	if !ok {
		return Stats{}, ErrNotFound
	}
	return Stats{Balance: d.Balance}, nil
}

func (f *fakeStore) SetActive(_ context.Context, id types.ID, active bool) error {
	d, ok := f.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.IsActive = active
	f.drivers[id] = d
	return nil
}

func (f *fakeStore) SetApproved(_ context.Context, id types.ID, approved bool) error {
	d, ok := f.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.IsApproved = approved
	f.drivers[id] = d
	return nil
}

func (f *fakeStore) HasActiveRides(_ context.Context, id types.ID) (bool, error) {
	return f.activeRides[id], nil
}

func (f *fakeStore) OnDutyLocations(context.Context) ([]Location, error) {
	return nil, nil
}

type fakePublisher struct {
	messages map[string][]realtime.Message
}

func (f *fakePublisher) Publish(_ context.Context, channel string, msg realtime.Message) error {
	if f.messages == nil {
		f.messages = make(map[string][]realtime.Message)
	}
	f.messages[channel] = append(f.messages[channel], msg)
	return nil
}

type fakeNotifier struct {
	recorded []types.ID
}

func (f *fakeNotifier) Record(_ context.Context, userID types.ID, _, _ string, _ notification.Category) error {
	f.recorded = append(f.recorded, userID)
	return nil
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestService(store *fakeStore) (*Service, *fakePublisher, *fakeNotifier) {
	pub := &fakePublisher{}
	not := &fakeNotifier{}
	return NewService(store, not, pub, testLogger()), pub, not
}

func TestSetDuty(t *testing.T) {
	ctx := context.Background()
	tashkent := types.Point{Lat: 41.3111, Lng: 69.2797}

	t.Run("publishes to dispatchers", func(t *testing.T) {
		store := newFakeStore()
		store.drivers["d1"] = Driver{ID: "d1", IsActive: true}
		svc, pub, _ := newTestService(store)

		rec, err := svc.SetDuty(ctx, "d1", true, &tashkent, "Tashkent")
		if err != nil {
			t.Fatalf("SetDuty: %v", err)
		}
		if !rec.OnDuty || rec.Location == nil {
			t.Fatalf("duty record not stored: %+v", rec)
		}
		if got := len(pub.messages[realtime.ChannelDispatchers]); got != 1 {
			t.Fatalf("dispatcher messages = %d, want 1", got)
		}
		if got := len(pub.messages[realtime.ChannelRiders]); got != 0 {
			t.Fatalf("rider messages = %d, want 0", got)
		}
	})

	t.Run("notifies riders when driver has active rides", func(t *testing.T) {
		store := newFakeStore()
		store.drivers["d1"] = Driver{ID: "d1", IsActive: true}
		store.activeRides["d1"] = true
		svc, pub, _ := newTestService(store)

		if _, err := svc.SetDuty(ctx, "d1", true, &tashkent, ""); err != nil {
			t.Fatalf("SetDuty: %v", err)
		}
		if got := len(pub.messages[realtime.ChannelRiders]); got != 1 {
			t.Fatalf("rider messages = %d, want 1", got)
		}
	})

	t.Run("off-duty toggle keeps last location", func(t *testing.T) {
		store := newFakeStore()
		store.drivers["d1"] = Driver{ID: "d1", IsActive: true}
		svc, _, _ := newTestService(store)

		if _, err := svc.SetDuty(ctx, "d1", true, &tashkent, ""); err != nil {
			t.Fatalf("SetDuty on: %v", err)
		}
		rec, err := svc.SetDuty(ctx, "d1", false, nil, "")
		if err != nil {
			t.Fatalf("SetDuty off: %v", err)
		}
		if rec.OnDuty {
			t.Fatal("expected off duty")
		}
		if rec.Location == nil || rec.Location.Lat != tashkent.Lat {
			t.Fatalf("last location lost: %+v", rec.Location)
		}
	})

	t.Run("rejects out-of-range location", func(t *testing.T) {
		store := newFakeStore()
		store.drivers["d1"] = Driver{ID: "d1"}
		svc, _, _ := newTestService(store)

		bad := types.Point{Lat: 95, Lng: 0}
		if _, err := svc.SetDuty(ctx, "d1", true, &bad, ""); !errors.Is(err, ErrBadLocation) {
			t.Fatalf("err = %v, want ErrBadLocation", err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		svc, _, _ := newTestService(newFakeStore())
		if _, err := svc.SetDuty(ctx, "nope", true, nil, ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits balance", func(t *testing.T) {
		store := newFakeStore()
		store.drivers["d1"] = Driver{ID: "d1", Balance: 10000}
		svc, _, _ := newTestService(store)

		balance, err := svc.Deposit(ctx, "d1", 50000)
		if err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		if balance != 60000 {
			t.Fatalf("balance = %v, want 60000", balance)
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		store := newFakeStore()
		store.drivers["d1"] = Driver{ID: "d1"}
		svc, _, _ := newTestService(store)

		for _, amount := range []float64{0, -1, -50000} {
			if _, err := svc.Deposit(ctx, "d1", amount); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("Deposit(%v) err = %v, want ErrInvalidAmount", amount, err)
			}
		}
		if len(store.deposits) != 0 {
			t.Fatalf("store touched on invalid amount: %v", store.deposits)
		}
	})
}

func TestState_GateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.drivers["d1"] = Driver{ID: "d1", IsActive: true, IsApproved: true, Balance: 0}
	store.duty["d1"] = DutyRecord{DriverID: "d1", OnDuty: true}
	svc, _, _ := newTestService(store)

	state, err := svc.State(ctx, "d1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if dec := eligibility.Check(state); dec.Allowed || dec.Reason != eligibility.ReasonInsufficientBalance {
		t.Fatalf("decision = %+v, want INSUFFICIENT_BALANCE deny", dec)
	}

	if _, err := svc.Deposit(ctx, "d1", 50000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	state, err = svc.State(ctx, "d1")
	if err != nil {
		t.Fatalf("State after deposit: %v", err)
	}
	if dec := eligibility.Check(state); !dec.Allowed {
		t.Fatalf("decision = %+v, want allow after deposit", dec)
	}
}

func TestState_NoDutyRecord(t *testing.T) {
	store := newFakeStore()
	store.drivers["d1"] = Driver{ID: "d1", IsActive: true, IsApproved: true, Balance: 100}
	svc, _, _ := newTestService(store)

	state, err := svc.State(context.Background(), "d1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.HasDutyRecord || state.OnDuty {
		t.Fatalf("state = %+v, want no duty record", state)
	}
	if dec := eligibility.Check(state); dec.Reason != eligibility.ReasonOffDuty {
		t.Fatalf("reason = %v, want OFF_DUTY", dec.Reason)
	}
}

func TestBlockUnblock(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.drivers["d1"] = Driver{ID: "d1", IsActive: true}
	svc, _, not := newTestService(store)

	if err := svc.Block(ctx, "d1"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if store.drivers["d1"].IsActive {
		t.Fatal("driver still active after block")
	}
	if err := svc.Unblock(ctx, "d1"); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if !store.drivers["d1"].IsActive {
		t.Fatal("driver inactive after unblock")
	}
	if len(not.recorded) != 2 {
		t.Fatalf("notifications = %d, want 2", len(not.recorded))
	}
}
