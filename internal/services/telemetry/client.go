// Package telemetry implements the buffering client: points are accumulated in
// memory and delivered in batches once the buffer reaches its threshold or the
// caller flushes explicitly.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
	"github.com/vshulcz/Telemetra/pkg/observer"
)

const (
	defaultBatchSize = 100
	defaultTimeout   = 30 * time.Second
)

// Client buffers points and delivers them through a Transport.
//
// There is no background goroutine: a flush runs on the goroutine of whichever
// Record call filled the buffer, so Record may occasionally take as long as a
// network round trip and may return a *domain.DeliveryError for points that
// were recorded by other callers.
type Client struct {
	// Immutable after New.
	tr        ports.Transport
	log       *zap.Logger
	events    *observer.Subject[FlushEvent]
	newID     func() string
	timeout   time.Duration
	threshold int
	enabled   bool

	// flushSlot holds one token while a flush runs, so batches reach the
	// transport in drain order. Waiting for it honours the caller's context.
	flushSlot chan struct{}

	// mu guards queue and closed. It is never held across a delivery.
	mu     sync.Mutex
	queue  []domain.Point
	closed bool

	recorded  atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
	batches   atomic.Int64
	failures  atomic.Int64
}

var _ ports.Recorder = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBatchSize sets the buffer length that triggers a flush. Values <= 0 keep the default of 100.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithTimeout bounds every delivery. Zero disables the client-side deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for delivery outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEnabled turns the client into a no-op when false.
func WithEnabled(enabled bool) Option {
	return func(c *Client) {
		c.enabled = enabled
	}
}

// WithObservers registers observers notified after every delivery attempt.
func WithObservers(obs ...FlushObserver) Option {
	return func(c *Client) {
		c.events.Attach(obs...)
	}
}

// New creates a buffering client on top of tr.
func New(tr ports.Transport, opts ...Option) *Client {
	c := &Client{
		tr:        tr,
		log:       zap.NewNop(),
		events:    observer.NewSubject[FlushEvent](),
		newID:     uuid.NewString,
		timeout:   defaultTimeout,
		threshold: defaultBatchSize,
		enabled:   true,
		flushSlot: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events.SetErrorHandler(func(err error) {
		c.log.Warn("flush observer failed", zap.Error(err))
	})
	c.queue = make([]domain.Point, 0, c.threshold)
	return c
}

// Record appends p to the buffer. When the buffer length reaches the batch
// size, the buffer is flushed before Record returns and the delivery outcome
// is returned. At most one flush is triggered per call.
func (c *Client) Record(ctx context.Context, p domain.Point) error {
	if c == nil || !c.enabled {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClientClosed
	}
	c.queue = append(c.queue, p)
	c.recorded.Add(1)
	full := len(c.queue) >= c.threshold
	c.mu.Unlock()

	if !full {
		return nil
	}
	return c.Flush(ctx)
}

// RecordMetric builds a point stamped with the current time and records it.
func (c *Client) RecordMetric(ctx context.Context, metric string, value float64, tags map[string]string) error {
	return c.Record(ctx, domain.NewPoint(metric, value).WithTags(tags).Build())
}

// Flush drains the buffer and delivers its contents as one batch. The buffer
// is empty afterwards even if delivery fails: failed batches are dropped, not
// re-queued. Flushing an empty buffer does not call the transport.
//
// If another flush is in flight, Flush waits for it until ctx is done; in that
// case nothing is drained and the points stay buffered for the next flush.
func (c *Client) Flush(ctx context.Context) error {
	if c == nil || !c.enabled {
		return nil
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	batch := c.drain()
	if batch.Empty() {
		return nil
	}
	return c.deliver(ctx, batch)
}

// Close flushes what is buffered and rejects further records.
func (c *Client) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Flush(ctx)
}

// Len returns the number of buffered points.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.flushSlot <- struct{}{}:
		return nil
	default:
	}
	select {
	case c.flushSlot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return classify(ctx, ctx.Err())
	}
}

func (c *Client) release() { <-c.flushSlot }

// drain swaps the queue for an empty one and returns the old contents.
func (c *Client) drain() domain.Batch {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return domain.Batch{}
	}
	points := c.queue
	c.queue = make([]domain.Point, 0, c.threshold)
	c.mu.Unlock()

	return domain.Batch{ID: c.newID(), Points: points}
}

func (c *Client) deliver(ctx context.Context, batch domain.Batch) error {
	sendCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.tr.Deliver(sendCtx, batch)
	elapsed := time.Since(start)

	n := int64(batch.Len())
	c.batches.Add(1)
	if err != nil {
		err = classify(sendCtx, err)
		c.failures.Add(1)
		c.dropped.Add(n)
		c.log.Warn("telemetry batch dropped",
			zap.String("batch_id", batch.ID),
			zap.Int("points", batch.Len()),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	} else {
		c.delivered.Add(n)
		c.log.Debug("telemetry batch delivered",
			zap.String("batch_id", batch.ID),
			zap.Int("points", batch.Len()),
			zap.Duration("duration", elapsed),
		)
	}

	c.events.Publish(ctx, FlushEvent{
		BatchID:  batch.ID,
		Points:   batch.Len(),
		Duration: elapsed,
		Err:      err,
	})
	return err
}

// classify makes sure callers always see a *domain.DeliveryError.
func classify(ctx context.Context, err error) error {
	var de *domain.DeliveryError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewDeliveryError(domain.KindTimeout, err)
	}
	return domain.NewDeliveryError(domain.KindOther, err)
}
