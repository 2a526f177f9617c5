package handlers

import (
	"io"
	"net/http"

	"face-greeter-go/internal/server/sse"

	"github.com/gin-gonic/gin"
)

// StreamEvents behandelt SSE-Verbindungen für Echtzeit-Updates
func (h *APIHandler) StreamEvents(c *gin.Context) {
	if h.deps.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not available"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	client := make(sse.Client, 10)
	h.deps.Hub.Register(client)
	// Hub schließt den Kanal selbst, wenn er den Client wegen Überlauf entfernt
	defer func() {
		go h.deps.Hub.Unregister(client)
	}()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		}
	})
}
