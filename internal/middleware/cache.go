package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type snapshotInvalidator interface {
	Invalidate(ctx context.Context)
}

// InvalidateOnWrite drops the cached dashboard snapshot after any
// successful mutating request in the group it is mounted on.
func InvalidateOnWrite(cache snapshotInvalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= 400 {
			return
		}
		cache.Invalidate(c.Request.Context())
	}
}
