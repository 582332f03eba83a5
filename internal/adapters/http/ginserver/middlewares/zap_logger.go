package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vshulcz/Telemetra/internal/services/audit"
)

// ZapLogger logs one line per request. Server errors are logged at error level.
func ZapLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		uri := c.Request.RequestURI

		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("uri", uri),
			zap.Int("status", status),
			zap.Int("size", max(c.Writer.Size(), 0)),
			zap.Duration("duration", time.Since(start)),
		}
		if id := audit.BatchIDFromContext(c.Request.Context()); id != "" {
			fields = append(fields, zap.String("batch_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		l.Log(level, "http_request", fields...)
	}
}
