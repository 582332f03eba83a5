package ingest

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	points   prometheus.Counter
	batches  prometheus.Counter
	redacted prometheus.Counter
	skipped  prometheus.Counter
	rejected *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetra",
			Name:      "points_accepted_total",
			Help:      "Telemetry points stored by the ingestion endpoint.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetra",
			Name:      "batches_accepted_total",
			Help:      "Telemetry batches stored by the ingestion endpoint.",
		}),
		redacted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetra",
			Name:      "tags_redacted_total",
			Help:      "Tag values replaced by the redaction schema.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetra",
			Name:      "points_skipped_total",
			Help:      "Telemetry points dropped at ingestion because their value was not finite.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetra",
			Name:      "batches_rejected_total",
			Help:      "Telemetry batches rejected, by reason.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return m
	}
	m.points = register(reg, m.points)
	m.batches = register(reg, m.batches)
	m.redacted = register(reg, m.redacted)
	m.skipped = register(reg, m.skipped)
	m.rejected = register(reg, m.rejected)
	return m
}

// register reuses an already registered collector so that several services
// can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
