package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route paths of the telemetry API.
const (
	IngestPath = "/api/v1/telemetry"
	PointsPath = "/api/v1/points"
)

// NewRouter builds the server routes. auth guards the /api/v1 group only;
// /ping and /metrics stay open. A nil gatherer disables /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, auth gin.HandlerFunc, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		})))
	}

	api := r.Group("/")
	if auth != nil {
		api.Use(auth)
	}
	api.POST(IngestPath, h.Ingest)
	api.GET(PointsPath, h.Points)

	return r
}
