package realtime

import (
	"time"

	"github.com/gorilla/websocket"

	"royaltaxi/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 32
)

// Client is one websocket subscriber pinned to a single channel.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	channel string
	userID  types.ID
	send    chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, channel string, userID types.ID) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		channel: channel,
		userID:  userID,
		send:    make(chan []byte, sendBuffer),
	}
}

// readPump discards inbound frames; the socket is server-push only. It exists
// to service pongs and to notice the peer going away.
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
