package httpkit

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BrowserID returns the browser session ID set by BrowserSession.
// The empty string means the middleware did not run.
func BrowserID(c *gin.Context) string {
	value, ok := c.Get(ContextBrowserIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}

// MustBrowserID aborts with 401 when no browser session is present.
func MustBrowserID(c *gin.Context) (string, bool) {
	id := BrowserID(c)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing browser session"})
		return "", false
	}
	return id, true
}

func withValue(ctx context.Context, key, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
