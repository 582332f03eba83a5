package ingest

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
	"github.com/vshulcz/Telemetra/internal/services/audit"
)

type fakeRepo struct {
	err     error
	batches []string
	points  []domain.Point
	mu      sync.Mutex
}

func (r *fakeRepo) Append(_ context.Context, batchID string, points []domain.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, batchID)
	r.points = append(r.points, points...)
	return nil
}

func (r *fakeRepo) Query(_ context.Context, q ports.PointQuery) ([]domain.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Point
	for _, p := range r.points {
		if q.Metric == "" || p.Metric() == q.Metric {
			out = append(out, p)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

func (r *fakeRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points), nil
}

func (r *fakeRepo) Ping(context.Context) error { return r.err }

type upperRedactor struct{}

func (upperRedactor) Apply(points []domain.Point) ([]domain.Point, int) {
	out := make([]domain.Point, len(points))
	n := 0
	for i, p := range points {
		out[i] = p
		if _, ok := p.Tag("secret"); ok {
			tags := p.Tags()
			tags["secret"] = "X"
			out[i] = p.WithTags(tags)
			n++
		}
	}
	return out, n
}

func newTestService(repo *fakeRepo, opts ...Option) (*Service, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	s := New(repo, append([]Option{WithRegisterer(reg)}, opts...)...)
	s.now = func() time.Time { return time.UnixMilli(5000) }
	return s, reg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		points  []domain.Point
		wantErr string
	}{
		{name: "ok", points: []domain.Point{domain.NewPoint("cpu", 1).Build()}},
		{name: "empty batch", points: nil},
		{name: "empty metric", points: []domain.Point{domain.NewPoint("cpu", 1).Build(), domain.NewPoint("  ", 1).Build()}, wantErr: "point 1: metric name is empty"},
		{name: "nan is left to ingest", points: []domain.Point{domain.NewPoint("cpu", math.NaN()).Build()}},
		{name: "nameless nan", points: []domain.Point{domain.NewPoint("", math.Inf(-1)).Build()}, wantErr: "point 0: metric name is empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.points)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrInvalidPoint) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v want %q", err, tc.wantErr)
			}
		})
	}
}

func TestService_Ingest(t *testing.T) {
	repo := &fakeRepo{}
	var (
		mu     sync.Mutex
		events []audit.Event
	)
	subj := audit.NewSubject(audit.ObserverFunc(func(_ context.Context, e audit.Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	}))
	changed := 0
	s, _ := newTestService(repo,
		WithRedactor(upperRedactor{}),
		WithAudit(subj),
		WithOnChanged(func(context.Context) { changed++ }),
	)

	ctx := audit.WithClientIP(context.Background(), "10.1.1.1")
	var decoded domain.Point
	if err := decoded.UnmarshalJSON([]byte(`{"metric":"mem","value":2}`)); err != nil {
		t.Fatal(err)
	}
	n, err := s.Ingest(ctx, "b-1", []domain.Point{
		domain.NewPoint("cpu", 1).WithTag("secret", "s3").WithTimestamp(10).Build(),
		decoded,
	})
	if err != nil || n != 2 {
		t.Fatalf("Ingest=%d,%v", n, err)
	}

	if repo.batches[0] != "b-1" || len(repo.points) != 2 {
		t.Fatalf("stored batches=%v points=%d", repo.batches, len(repo.points))
	}
	if v, _ := repo.points[0].Tag("secret"); v != "X" {
		t.Fatalf("secret tag not redacted: %q", v)
	}
	if ts, _ := repo.points[0].Timestamp(); ts != 10 {
		t.Fatalf("explicit timestamp changed: %d", ts)
	}
	if ts, _ := repo.points[1].Timestamp(); ts != 5000 {
		t.Fatalf("missing timestamp not stamped: %d", ts)
	}
	if changed != 1 {
		t.Fatalf("onChanged calls=%d", changed)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("audit events=%d", len(events))
	}
	e := events[0]
	if e.BatchID != "b-1" || e.IPAddress != "10.1.1.1" || e.Points != 2 || e.Timestamp != 5 {
		t.Fatalf("audit event=%+v", e)
	}

	if got := testutil.ToFloat64(s.m.points); got != 2 {
		t.Fatalf("points counter=%v", got)
	}
	if got := testutil.ToFloat64(s.m.redacted); got != 1 {
		t.Fatalf("redacted counter=%v", got)
	}
}

func TestService_IngestRejects(t *testing.T) {
	repo := &fakeRepo{}
	s, _ := newTestService(repo)

	_, err := s.Ingest(context.Background(), "b", []domain.Point{domain.NewPoint("", 1).Build()})
	if !errors.Is(err, domain.ErrInvalidPoint) {
		t.Fatalf("err=%v", err)
	}
	if len(repo.points) != 0 {
		t.Fatal("invalid batch must not be stored")
	}
	if got := testutil.ToFloat64(s.m.rejected.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("rejected counter=%v", got)
	}

	repo.err = errors.New("disk full")
	if _, err := s.Ingest(context.Background(), "b", []domain.Point{domain.NewPoint("ok", 1).Build()}); err == nil {
		t.Fatal("expected storage error")
	}
	if got := testutil.ToFloat64(s.m.rejected.WithLabelValues("storage")); got != 1 {
		t.Fatalf("storage rejections=%v", got)
	}
}

func TestService_IngestSkipsNonFinite(t *testing.T) {
	repo := &fakeRepo{}
	s, _ := newTestService(repo)

	var nullValue domain.Point
	if err := nullValue.UnmarshalJSON([]byte(`{"metric":"gpu","value":null}`)); err != nil {
		t.Fatal(err)
	}
	n, err := s.Ingest(context.Background(), "b-mixed", []domain.Point{
		domain.NewPoint("a", 1).Build(),
		nullValue,
		domain.NewPoint("b", 2).Build(),
		domain.NewPoint("c", math.Inf(1)).Build(),
	})
	if err != nil || n != 2 {
		t.Fatalf("Ingest=%d,%v want 2 accepted", n, err)
	}
	if len(repo.points) != 2 || repo.points[0].Metric() != "a" || repo.points[1].Metric() != "b" {
		t.Fatalf("stored %v", repo.points)
	}
	if got := testutil.ToFloat64(s.m.skipped); got != 2 {
		t.Fatalf("skipped counter=%v", got)
	}

	n, err = s.Ingest(context.Background(), "b-nan", []domain.Point{domain.NewPoint("d", math.NaN()).Build()})
	if err != nil || n != 0 {
		t.Fatalf("Ingest=%d,%v", n, err)
	}
	if len(repo.batches) != 1 {
		t.Fatal("batch without finite points must not reach storage")
	}
}

func TestService_IngestDuplicateBatch(t *testing.T) {
	repo := &fakeRepo{err: domain.ErrDuplicateBatch}
	changed := 0
	s, _ := newTestService(repo, WithOnChanged(func(context.Context) { changed++ }))

	n, err := s.Ingest(context.Background(), "b-1", []domain.Point{domain.NewPoint("cpu", 1).Build()})
	if err != nil || n != 0 {
		t.Fatalf("Ingest=%d,%v want 0 accepted and no error", n, err)
	}
	if changed != 0 {
		t.Fatal("duplicate batch must not trigger onChanged")
	}
	if got := testutil.ToFloat64(s.m.rejected.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("duplicate rejections=%v", got)
	}
	if got := testutil.ToFloat64(s.m.points); got != 0 {
		t.Fatalf("points counter=%v", got)
	}
}

func TestService_IngestEmpty(t *testing.T) {
	repo := &fakeRepo{}
	s, _ := newTestService(repo)
	n, err := s.Ingest(context.Background(), "", nil)
	if err != nil || n != 0 {
		t.Fatalf("Ingest=%d,%v", n, err)
	}
	if len(repo.batches) != 0 {
		t.Fatal("empty batch must not reach storage")
	}
}

func TestService_Query(t *testing.T) {
	repo := &fakeRepo{}
	s, _ := newTestService(repo)
	for _, m := range []string{"a", "b", "a", "a"} {
		if _, err := s.Ingest(context.Background(), "", []domain.Point{domain.NewPoint(m, 1).Build()}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Query(context.Background(), ports.PointQuery{Metric: " a ", Limit: 2})
	if err != nil || len(got) != 2 {
		t.Fatalf("Query=%d,%v", len(got), err)
	}
	all, err := s.All(context.Background())
	if err != nil || len(all) != 4 {
		t.Fatalf("All=%d,%v", len(all), err)
	}
}

func TestNewMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newMetrics(reg)
	b := newMetrics(reg)
	a.points.Add(3)
	if got := testutil.ToFloat64(b.points); got != 3 {
		t.Fatalf("second service must reuse counters, got %v", got)
	}
}
