// Package realtime carries best-effort broadcast messages to connected
// clients. Messages travel through redis pub/sub so every API process feeds
// its own websocket hub; delivery is at-most-once and never acknowledged.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Broadcast channel names. Clients subscribe to exactly one.
const (
	ChannelDrivers     = "drivers"
	ChannelDispatchers = "dispatchers"
	ChannelRiders      = "riders"
)

const channelPrefix = "broadcast:"

// ValidChannel reports whether name is a known broadcast channel.
func ValidChannel(name string) bool {
	switch name {
	case ChannelDrivers, ChannelDispatchers, ChannelRiders:
		return true
	}
	return false
}

// Message is the envelope published on a channel.
type Message struct {
	Type   string         `json:"type"`
	RideID string         `json:"ride_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher pushes a message to all subscribers of a channel. Implementations
// are fire-and-forget; callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg Message) error
}

// RedisPublisher publishes over redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channelPrefix+channel, data).Err()
}
