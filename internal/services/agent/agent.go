// Package agent implements the telemetry agent loop: sample, record, flush.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/Telemetra/internal/config"
	"github.com/vshulcz/Telemetra/internal/ports"
)

const shutdownFlushTimeout = 5 * time.Second

// Service periodically samples points into a Recorder and flushes it on its own schedule.
type Service struct {
	sampler ports.Sampler
	rec     ports.Recorder
	log     *zap.Logger
	poll    time.Duration
	flush   time.Duration
}

// New wires the agent configuration, sampler and recorder together.
func New(cfg config.ClientConfig, s ports.Sampler, rec ports.Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sampler: s,
		rec:     rec,
		log:     log,
		poll:    cfg.PollInterval,
		flush:   cfg.FlushInterval,
	}
}

// Run blocks until ctx is done, then flushes whatever is still buffered.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.every(gctx, s.poll, s.pollOnce)
		return nil
	})
	g.Go(func() error {
		s.every(gctx, s.flush, s.flushOnce)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	if err := s.rec.Flush(fctx); err != nil {
		s.log.Warn("final flush failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	points, err := s.sampler.Sample(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("sample failed", zap.Error(err))
		}
		return
	}
	for _, p := range points {
		if err := s.rec.Record(ctx, p); err != nil {
			// The recorder has already dropped the batch; keep sampling.
			s.log.Warn("record failed", zap.String("metric", p.Metric()), zap.Error(err))
		}
	}
	s.log.Debug("sampled", zap.Int("points", len(points)))
}

func (s *Service) flushOnce(ctx context.Context) {
	if err := s.rec.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("periodic flush failed", zap.Error(err))
	}
}
