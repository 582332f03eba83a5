package ports

import "context"

type Recorder interface {
	Record(ctx context.Context, v float64) error
	Flush(ctx context.Context) error
}
