package handler

import (
	"io"
	"main/services"

	"github.com/gin-gonic/gin"
)

type RelayHandler struct {
	relay *services.Relay
}

func NewRelayHandler(relay *services.Relay) *RelayHandler {
	return &RelayHandler{relay: relay}
}

// Stream attaches the caller as a live subscriber of their own session and
// activity signals (cross-tab sync), delivered as server-sent events.
func (h *RelayHandler) Stream(c *gin.Context) {
	h.stream(c, false)
}

// StreamObserver attaches the caller as an observer of aggregate
// productivity ticks across users (dashboard views).
func (h *RelayHandler) StreamObserver(c *gin.Context) {
	h.stream(c, true)
}

func (h *RelayHandler) stream(c *gin.Context, observer bool) {
	_, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	conn := h.relay.Register(userID, c.GetHeader("User-Agent"), observer)
	defer h.relay.Unregister(conn)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Fan-out loop ends on client disconnect. Delivery is advisory; a
	// client that misses messages reconverges by polling the stores.
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, open := <-conn.Out:
			if !open {
				return false
			}
			c.SSEvent(msg.Event, msg)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
