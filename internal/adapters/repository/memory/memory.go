// Package memory implements an in-memory point repository.
package memory

import (
	"context"
	"sync"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
)

// Repo keeps points in insertion order with coarse-grained RW locking.
type Repo struct {
	seen   map[string]struct{}
	points []domain.Point
	mu     sync.RWMutex
}

var _ ports.PointsRepo = (*Repo)(nil)

// New returns an empty in-memory repository.
func New() *Repo {
	return &Repo{seen: make(map[string]struct{})}
}

// Append stores points. A batch id seen before is rejected with
// domain.ErrDuplicateBatch and its points are not stored again.
func (r *Repo) Append(_ context.Context, batchID string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if batchID != "" {
		if _, dup := r.seen[batchID]; dup {
			return domain.ErrDuplicateBatch
		}
		r.seen[batchID] = struct{}{}
	}
	r.points = append(r.points, points...)
	return nil
}

// Query copies matching points so callers never see internal state.
func (r *Repo) Query(_ context.Context, q ports.PointQuery) ([]domain.Point, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Point, 0, len(r.points))
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

// Count returns the number of stored points.
func (r *Repo) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points), nil
}

// Ping always succeeds for the in-memory store.
func (*Repo) Ping(context.Context) error {
	return nil
}
