package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"royaltaxi/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is consumed by native apps; browser origins are not a concern.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades authenticated requests to websocket subscriptions.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Subscribe handles GET /ws?channel=drivers|dispatchers|riders. The caller's
// identity is read from the auth middleware's context keys.
func (h *Handler) Subscribe(c *gin.Context) {
	channel := c.Query("channel")
	if !ValidChannel(channel) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel"})
		return
	}

	userID, _ := c.Get("user_id")
	uid, _ := userID.(types.ID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		return
	}

	client := newClient(h.hub, conn, channel, uid)
	h.hub.attach(client)
	go client.writePump()
	go client.readPump()
}
