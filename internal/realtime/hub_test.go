package realtime

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testHub() *Hub {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHub(nil, logrus.NewEntry(log))
}

func TestListenerCounts(t *testing.T) {
	h := testHub()

	counts := h.ListenerCounts()
	for _, ch := range []string{ChannelDrivers, ChannelDispatchers, ChannelRiders} {
		if counts[ch] != 0 {
			t.Fatalf("counts = %v, want all zero", counts)
		}
	}

	d1 := newClient(h, nil, ChannelDrivers, "d1")
	d2 := newClient(h, nil, ChannelDrivers, "d2")
	r1 := newClient(h, nil, ChannelRiders, "r1")
	h.attach(d1)
	h.attach(d2)
	h.attach(r1)

	if got := h.SubscriberCount(ChannelDrivers); got != 2 {
		t.Fatalf("drivers = %d, want 2", got)
	}
	counts = h.ListenerCounts()
	if counts[ChannelDrivers] != 2 || counts[ChannelRiders] != 1 || counts[ChannelDispatchers] != 0 {
		t.Fatalf("counts = %v", counts)
	}

	h.detach(d1)
	if got := h.SubscriberCount(ChannelDrivers); got != 1 {
		t.Fatalf("drivers after detach = %d, want 1", got)
	}

	// Detaching twice must not double-close the send channel.
	h.detach(d1)
	h.detach(d2)
	h.detach(r1)
	counts = h.ListenerCounts()
	for _, ch := range []string{ChannelDrivers, ChannelDispatchers, ChannelRiders} {
		if counts[ch] != 0 {
			t.Fatalf("counts after detach = %v, want all zero", counts)
		}
	}
}

func TestFanoutDropsForSlowClient(t *testing.T) {
	h := testHub()
	c := newClient(h, nil, ChannelDrivers, "d1")
	h.attach(c)

	for i := 0; i < sendBuffer+10; i++ {
		h.fanout(ChannelDrivers, []byte("x"))
	}
	if len(c.send) != sendBuffer {
		t.Fatalf("buffered = %d, want full buffer %d", len(c.send), sendBuffer)
	}
}
