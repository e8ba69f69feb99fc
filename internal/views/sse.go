package views

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// Events streams snapshots of a view as server-sent events. The stream ends
// with an "unmounted" event when the view goes away.
func (h *Handler) Events(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	log := h.log.WithContext(c.Request.Context()).WithView(v.ID())

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	snapshots, cancel := v.Subscribe()
	defer cancel()

	c.SSEvent("connected", gin.H{"viewId": v.ID()})
	c.Writer.Flush()
	log.Debug("sse client connected")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			log.Debug("sse client disconnected")
			return
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			c.Writer.Flush()
		case snap, ok := <-snapshots:
			if !ok {
				c.SSEvent("unmounted", gin.H{"viewId": v.ID()})
				c.Writer.Flush()
				log.Debug("sse stream closed", slog.String("reason", "unmounted"))
				return
			}
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
		}
	}
}
