package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"royaltaxi/internal/types"
)

// CandidateStore reads broadcast candidates from the duty table.
type CandidateStore struct {
	db *pgxpool.Pool
}

func NewCandidateStore(db *pgxpool.Pool) *CandidateStore {
	return &CandidateStore{db: db}
}

func (s *CandidateStore) OnDutyCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.is_active, u.is_approved, u.balance, d.lat, d.lng
		FROM driver_duty d
		JOIN users u ON u.id = d.driver_id
		WHERE d.on_duty AND d.lat IS NOT NULL AND d.lng IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		c.State.HasDutyRecord = true
		c.State.OnDuty = true
		if err := rows.Scan(&c.DriverID, &c.State.Active, &c.State.Approved, &c.State.Balance, &c.Location.Lat, &c.Location.Lng); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RedisBookkeeper tracks per-ride dispatch state: when the first offer went
// out, which drivers were notified, and how many rounds were run. Keys expire
// after a day; the notification table is the durable record.
type RedisBookkeeper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisBookkeeper(rdb *redis.Client) *RedisBookkeeper {
	return &RedisBookkeeper{rdb: rdb, ttl: 24 * time.Hour}
}

func dispatchKey(rideID types.ID, suffix string) string {
	return fmt.Sprintf("dispatch:ride:%s:%s", rideID, suffix)
}

func (b *RedisBookkeeper) RecordDispatch(ctx context.Context, rideID types.ID, driverIDs []types.ID, radiusKm float64) error {
	members := make([]any, len(driverIDs))
	for i, id := range driverIDs {
		members[i] = string(id)
	}

	pipe := b.rdb.Pipeline()
	pipe.SetNX(ctx, dispatchKey(rideID, "first"), time.Now().UTC().Format(time.RFC3339), b.ttl)
	pipe.SAdd(ctx, dispatchKey(rideID, "notified"), members...)
	pipe.Expire(ctx, dispatchKey(rideID, "notified"), b.ttl)
	pipe.Incr(ctx, dispatchKey(rideID, "rounds"))
	pipe.Expire(ctx, dispatchKey(rideID, "rounds"), b.ttl)
	pipe.Set(ctx, dispatchKey(rideID, "radius"), radiusKm, b.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// NotifiedDrivers returns every driver offered the ride so far.
func (b *RedisBookkeeper) NotifiedDrivers(ctx context.Context, rideID types.ID) ([]types.ID, error) {
	members, err := b.rdb.SMembers(ctx, dispatchKey(rideID, "notified")).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

// Rounds reports how many broadcast rounds the ride has had.
func (b *RedisBookkeeper) Rounds(ctx context.Context, rideID types.ID) (int64, error) {
	n, err := b.rdb.Get(ctx, dispatchKey(rideID, "rounds")).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
