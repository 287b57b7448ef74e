package sse

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServeSSE keep an event-stream connection open and forward hub messages.
// Subscribes to ?runId=<id> when given, otherwise to all runs.
func ServeSSE(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.Query("runId")
		if topic == "" {
			topic = TopicAll
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "streaming unsupported")
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		ch := make(chan []byte, 16)
		hub.Subscribe(ch, topic)
		defer hub.Unsubscribe(ch, topic)

		for {
			select {
			case msg := <-ch:
				fmt.Fprintf(c.Writer, "data: %s\n\n", msg)
				flusher.Flush()
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}
