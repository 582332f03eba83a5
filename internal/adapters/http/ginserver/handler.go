package ginserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/misc"
	"github.com/vshulcz/Telemetra/internal/ports"
	"github.com/vshulcz/Telemetra/internal/services/audit"
	"github.com/vshulcz/Telemetra/internal/services/ingest"
)

// maxBatchBody bounds the accepted request body.
const maxBatchBody = 8 << 20

// Handler exposes HTTP endpoints for telemetry ingestion and inspection.
type Handler struct {
	svc *ingest.Service
}

// NewHandler wires an ingestion service into a gin-compatible HTTP handler.
func NewHandler(svc *ingest.Service) *Handler {
	return &Handler{svc: svc}
}

type batchPayload struct {
	Points []domain.Point `json:"points"`
}

// Reset empties the payload and drops point references so pooled buffers
// do not pin decoded tags.
func (b *batchPayload) Reset() {
	clear(b.Points)
	b.Points = b.Points[:0]
}

var batchPool = misc.NewPool(func() *batchPayload {
	return &batchPayload{Points: make([]domain.Point, 0, 256)}
})

// decodeBatch reads a batch into a pooled buffer. The returned points are
// owned by the caller; release only returns the buffer.
func decodeBatch(r io.Reader) ([]domain.Point, func(), error) {
	buf := batchPool.Get()
	release := func() { batchPool.Put(buf) }

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(buf); err != nil {
		release()
		return nil, func() {}, err
	}
	if len(buf.Points) == 0 {
		return nil, release, nil
	}
	points := make([]domain.Point, len(buf.Points))
	copy(points, buf.Points)
	return points, release, nil
}

// Ingest handles `POST /api/v1/telemetry` with a JSON batch of points. A
// repeated X-Batch-ID is acknowledged with {"accepted":0}.
func (h *Handler) Ingest(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBatchBody)
	points, release, err := decodeBatch(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.String(http.StatusBadRequest, "bad request: %v", err)
		return
	}
	defer release()

	ctx := c.Request.Context()
	accepted, err := h.svc.Ingest(ctx, audit.BatchIDFromContext(ctx), points)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}

// Points handles `GET /api/v1/points?metric=&limit=`, oldest point first.
func (h *Handler) Points(c *gin.Context) {
	q := ports.PointQuery{Metric: c.Query("metric")}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.String(http.StatusBadRequest, "bad request: invalid limit %q", raw)
			return
		}
		q.Limit = n
	}

	points, err := h.svc.Query(c.Request.Context(), q)
	if err != nil {
		httpError(c, err)
		return
	}
	if points == nil {
		points = []domain.Point{}
	}
	c.JSON(http.StatusOK, batchPayload{Points: points})
}

// Ping proxies `GET /ping` to the storage health check.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, "db ping error: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func httpError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrInvalidPoint):
		c.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		c.String(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		c.String(http.StatusNotFound, "not found")
	default:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal error")
	}
}
