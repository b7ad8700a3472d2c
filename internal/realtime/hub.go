package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Hub fans redis pub/sub traffic out to websocket clients grouped by channel.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
	rdb         *redis.Client
	log         *logrus.Entry
}

func NewHub(rdb *redis.Client, log *logrus.Entry) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]struct{}),
		rdb:         rdb,
		log:         log,
	}
}

// Run pumps redis messages into the hub until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			channel := strings.TrimPrefix(msg.Channel, channelPrefix)
			h.fanout(channel, []byte(msg.Payload))
		}
	}
}

func (h *Hub) fanout(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subscribers[channel] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer: drop the message, not the connection.
			h.log.WithField("channel", channel).Debug("dropping message for slow client")
		}
	}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[c.channel] == nil {
		h.subscribers[c.channel] = make(map[*Client]struct{})
	}
	h.subscribers[c.channel][c] = struct{}{}
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subscribers[c.channel]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.subscribers, c.channel)
		}
	}
}

// SubscriberCount reports how many clients listen on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}

// ListenerCounts snapshots client counts for every broadcast channel.
func (h *Hub) ListenerCounts() map[string]int {
	counts := make(map[string]int, 3)
	for _, ch := range []string{ChannelDrivers, ChannelDispatchers, ChannelRiders} {
		counts[ch] = h.SubscriberCount(ch)
	}
	return counts
}
