package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
	"github.com/vshulcz/Telemetra/internal/services/ingest"
)

// discardRepo keeps the benchmark focused on decoding and validation.
type discardRepo struct{}

func (discardRepo) Append(context.Context, string, []domain.Point) error { return nil }
func (discardRepo) Query(context.Context, ports.PointQuery) ([]domain.Point, error) {
	return nil, nil
}
func (discardRepo) Count(context.Context) (int, error) { return 0, nil }
func (discardRepo) Ping(context.Context) error         { return nil }

func BenchmarkHandlerIngest(b *testing.B) {
	gin.SetMode(gin.ReleaseMode)

	svc := ingest.New(discardRepo{}, ingest.WithRegisterer(prometheus.NewRegistry()))
	handler := NewHandler(svc)

	engine := gin.New()
	engine.POST(IngestPath, handler.Ingest)

	points := make([]domain.Point, 0, 200)
	for i := range 200 {
		points = append(points, domain.NewPoint(fmt.Sprintf("m-%d", i%20), float64(i)).
			WithTag("host", "bench").
			WithTimestamp(int64(i)).
			Build())
	}
	payload, err := json.Marshal(batchPayload{Points: points})
	if err != nil {
		b.Fatalf("marshal: %v", err)
	}

	b.ReportAllocs()

	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, IngestPath, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusAccepted {
			b.Fatalf("unexpected status: %d", w.Code)
		}
	}
}
