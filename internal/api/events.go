package api

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"cloakedsheets/internal/notify"
)

// Events streams in-app notification events to the frontend over SSE.
func Events(bus *notify.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		events, cancel := bus.Subscribe()
		defer cancel()

		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			select {
			case ev, ok := <-events:
				if !ok {
					return false
				}
				data, _ := json.Marshal(ev)
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, string(data))
				return true
			case <-ctx.Done():
				return false
			}
		})
	}
}
