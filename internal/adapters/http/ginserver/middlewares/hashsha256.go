package middlewares

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/Telemetra/internal/misc"
)

// HashHeader carries the hex SHA256 of the body followed by the shared key.
const HashHeader = "HashSHA256"

type bodyBufferWriter struct {
	gin.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bodyBufferWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *bodyBufferWriter) WriteHeader(code int) {
	w.status = code
}

// HashSHA256 verifies the request body against the HashSHA256 header and
// signs the response body the same way. Requests without the header pass
// unverified. An empty key disables the middleware.
func HashSHA256(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		bw := &bodyBufferWriter{ResponseWriter: c.Writer}
		c.Writer = bw

		if status, msg := verifyBody(c, key); status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
		} else {
			c.Next()
		}

		if bw.body.Len() > 0 {
			c.Header(HashHeader, misc.SumSHA256(bw.body.Bytes(), key))
		}
		status := bw.status
		if status == 0 {
			status = http.StatusOK
		}
		c.Writer = bw.ResponseWriter
		c.Writer.WriteHeader(status)
		if _, err := c.Writer.Write(bw.body.Bytes()); err != nil {
			_ = c.Error(err)
		}
	}
}

// verifyBody returns a non-zero status when the request must be rejected.
func verifyBody(c *gin.Context, key string) (int, string) {
	got := strings.TrimSpace(c.GetHeader(HashHeader))
	if got == "" {
		return 0, ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return http.StatusBadRequest, "read body failed"
	}
	if err := c.Request.Body.Close(); err != nil {
		_ = c.Error(err)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) > 0 && !strings.EqualFold(got, misc.SumSHA256(body, key)) {
		return http.StatusBadRequest, "invalid hash"
	}
	return 0, ""
}
