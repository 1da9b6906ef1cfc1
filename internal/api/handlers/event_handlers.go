package handlers

import (
	"io"
	"net/http"

	"campus-face-id/internal/server/sse"

	"github.com/gin-gonic/gin"
)

// Events behandelt SSE-Verbindungen für Erkennungsergebnisse in Echtzeit
func (h *APIHandler) Events(c *gin.Context) {
	if h.sseHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream is not available"})
		return
	}

	// SSE-Header setzen
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	client := make(sse.Client, 10) // Puffer für 10 Nachrichten

	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	// Header sofort senden, damit der Client nicht auf das erste Ereignis wartet
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false // Hub beendet oder Client entfernt
			}
			c.SSEvent("recognition", string(msg))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
