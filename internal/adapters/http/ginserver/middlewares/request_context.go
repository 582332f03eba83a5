package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/Telemetra/internal/services/audit"
)

// BatchIDHeader carries the client-generated batch id used for deduplication.
const BatchIDHeader = "X-Batch-ID"

// RequestContext copies the client IP and batch id into the request context.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
		if id := strings.TrimSpace(c.GetHeader(BatchIDHeader)); id != "" {
			ctx = audit.WithBatchID(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
