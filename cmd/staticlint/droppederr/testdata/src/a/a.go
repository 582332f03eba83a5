package a

import (
	"context"

	"example.com/telemetra/internal/ports"
	"example.com/telemetra/internal/services/telemetry"
)

type file struct{}

func (file) Close() error { return nil }

func discarded(ctx context.Context, c *telemetry.Client, r ports.Recorder) {
	c.Record(ctx, 1)              // want `error returned by Client.Record is discarded`
	(c.RecordMetric(ctx, "m", 1)) // want `error returned by Client.RecordMetric is discarded`
	_ = c.Flush(ctx)              // want `error returned by Client.Flush is discarded`
	defer c.Close(ctx)            // want `error returned by Client.Close is discarded in defer`
	go c.Flush(ctx)               // want `error returned by Client.Flush is discarded in go statement`
	r.Flush(ctx)                  // want `error returned by Recorder.Flush is discarded`
	_ = r.Record(ctx, 2)          // want `error returned by Recorder.Record is discarded`
}

func handled(ctx context.Context, c *telemetry.Client, f file) error {
	if err := c.Record(ctx, 1); err != nil {
		return err
	}
	err := c.Flush(ctx)
	_ = err
	c.Len()
	f.Close()
	defer f.Close()
	return c.Close(ctx)
}
