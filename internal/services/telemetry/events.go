package telemetry

import (
	"time"

	"github.com/vshulcz/Telemetra/pkg/observer"
)

// FlushEvent describes one delivery attempt.
type FlushEvent struct {
	Err      error
	BatchID  string
	Points   int
	Duration time.Duration
}

// FlushObserver receives flush events.
type FlushObserver = observer.Observer[FlushEvent]

// FlushObserverFunc adapts a plain function to FlushObserver.
type FlushObserverFunc = observer.ObserverFunc[FlushEvent]

// Stats is a point-in-time view of the client counters.
type Stats struct {
	Recorded      int64
	Delivered     int64
	Dropped       int64
	Batches       int64
	FailedBatches int64
	Buffered      int
}

// Stats returns the client counters. Recorded == Delivered + Dropped + Buffered
// once no flush is in flight.
func (c *Client) Stats() Stats {
	return Stats{
		Recorded:      c.recorded.Load(),
		Delivered:     c.delivered.Load(),
		Dropped:       c.dropped.Load(),
		Batches:       c.batches.Load(),
		FailedBatches: c.failures.Load(),
		Buffered:      c.Len(),
	}
}
