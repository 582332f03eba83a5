package ports

import (
	"context"

	"github.com/vshulcz/Telemetra/internal/domain"
)

// PointQuery filters stored points. Zero values mean "no filter".
type PointQuery struct {
	Metric string
	Limit  int
}

// PointsRepo stores points. Append returns domain.ErrDuplicateBatch when a
// non-empty batch id has been stored before.
type PointsRepo interface {
	Append(ctx context.Context, batchID string, points []domain.Point) error
	Query(ctx context.Context, q PointQuery) ([]domain.Point, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type Persister interface {
	Save(ctx context.Context, points []domain.Point) error
	Restore(ctx context.Context, repo PointsRepo) error
}
