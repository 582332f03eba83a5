package ports

import (
	"context"

	"github.com/vshulcz/Telemetra/internal/domain"
)

// Transport delivers one batch to the collection endpoint. Failures are
// reported as *domain.DeliveryError.
type Transport interface {
	Deliver(ctx context.Context, batch domain.Batch) error
}

// Recorder accepts points for buffered delivery.
type Recorder interface {
	Record(ctx context.Context, p domain.Point) error
	Flush(ctx context.Context) error
}

// Sampler produces a fresh set of observations on each call.
type Sampler interface {
	Sample(ctx context.Context) ([]domain.Point, error)
}
