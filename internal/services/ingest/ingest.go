// Package ingest validates, redacts and stores telemetry batches received by the server.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
	"github.com/vshulcz/Telemetra/internal/services/audit"
)

// Redactor masks sensitive tag values and reports how many it changed.
type Redactor interface {
	Apply(points []domain.Point) ([]domain.Point, int)
}

type Service struct {
	repo      ports.PointsRepo
	redactor  Redactor
	audit     audit.Publisher
	onChanged func(context.Context)
	log       *zap.Logger
	now       func() time.Time
	m         *metrics
}

type Option func(*Service)

func WithRedactor(r Redactor) Option {
	return func(s *Service) { s.redactor = r }
}

func WithAudit(p audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithOnChanged registers a hook run after every stored batch.
func WithOnChanged(fn func(context.Context)) Option {
	return func(s *Service) { s.onChanged = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegisterer registers the ingestion counters with reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) { s.m = newMetrics(reg) }
}

func New(repo ports.PointsRepo, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		log:  zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.m == nil {
		s.m = newMetrics(prometheus.DefaultRegisterer)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Validate rejects points the store cannot accept. The whole batch fails on
// the first point without a metric name.
func Validate(points []domain.Point) error {
	for i, p := range points {
		if strings.TrimSpace(p.Metric()) == "" {
			return fmt.Errorf("%w: point %d: metric name is empty", domain.ErrInvalidPoint, i)
		}
	}
	return nil
}

// finite returns the points that carry a finite value. Clients encode NaN and
// infinity as null, so those points are skipped rather than failing the batch.
func finite(points []domain.Point) []domain.Point {
	out := make([]domain.Point, 0, len(points))
	for _, p := range points {
		if v := p.Value(); !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, p)
		}
	}
	return out
}

// Ingest stores a batch and returns the number of accepted points. Points
// without a timestamp are stamped with the receive time. Points without a
// finite value are skipped. A batch id that was already stored is
// acknowledged with zero accepted points.
func (s *Service) Ingest(ctx context.Context, batchID string, points []domain.Point) (int, error) {
	if err := Validate(points); err != nil {
		s.m.rejected.WithLabelValues("invalid").Inc()
		return 0, err
	}
	kept := finite(points)
	if skipped := len(points) - len(kept); skipped > 0 {
		s.m.skipped.Add(float64(skipped))
		s.log.Debug("non-finite points skipped", zap.String("batch_id", batchID), zap.Int("points", skipped))
	}
	if len(kept) == 0 {
		return 0, nil
	}

	now := s.now()
	stamped := make([]domain.Point, len(kept))
	for i, p := range kept {
		stamped[i] = p.WithDefaultTimestamp(now.UnixMilli())
	}
	if s.redactor != nil {
		var n int
		stamped, n = s.redactor.Apply(stamped)
		s.m.redacted.Add(float64(n))
	}

	if err := s.repo.Append(ctx, batchID, stamped); err != nil {
		if errors.Is(err, domain.ErrDuplicateBatch) {
			s.m.rejected.WithLabelValues("duplicate").Inc()
			s.log.Debug("duplicate batch ignored", zap.String("batch_id", batchID))
			return 0, nil
		}
		s.m.rejected.WithLabelValues("storage").Inc()
		return 0, err
	}
	s.m.batches.Inc()
	s.m.points.Add(float64(len(stamped)))
	s.log.Debug("batch stored", zap.String("batch_id", batchID), zap.Int("points", len(stamped)))

	if s.audit != nil {
		actx := audit.WithBatchID(ctx, batchID)
		s.audit.Publish(actx, audit.NewEvent(actx, stamped, now))
	}
	if s.onChanged != nil {
		s.onChanged(ctx)
	}
	return len(stamped), nil
}

// Query lists stored points in insertion order.
func (s *Service) Query(ctx context.Context, q ports.PointQuery) ([]domain.Point, error) {
	if q.Limit < 0 {
		q.Limit = 0
	}
	q.Metric = strings.TrimSpace(q.Metric)
	return s.repo.Query(ctx, q)
}

// All returns every stored point, used for snapshots.
func (s *Service) All(ctx context.Context) ([]domain.Point, error) {
	return s.repo.Query(ctx, ports.PointQuery{})
}
