package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Telemetra/internal/adapters/collector/host"
	"github.com/vshulcz/Telemetra/internal/adapters/publisher/httpjson"
	"github.com/vshulcz/Telemetra/internal/config"
	"github.com/vshulcz/Telemetra/internal/ports"
	agentsvc "github.com/vshulcz/Telemetra/internal/services/agent"
	"github.com/vshulcz/Telemetra/internal/services/telemetry"
)

const closeTimeout = 5 * time.Second

// run blocks until ctx is done and fails only on invalid configuration.
// sampler may be nil to sample this host.
func run(ctx context.Context, args []string, logger *zap.Logger, userAgent string, sampler ports.Sampler) error {
	cfg, err := config.LoadClientConfig(args, io.Discard)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	tr, err := httpjson.New(cfg.Address, nil,
		httpjson.WithAPIKey(cfg.APIKey),
		httpjson.WithSigningKey(cfg.Key),
		httpjson.WithUserAgent(userAgent),
	)
	if err != nil {
		return err
	}

	client := telemetry.New(tr,
		telemetry.WithBatchSize(cfg.BatchSize),
		telemetry.WithTimeout(cfg.RequestTimeout),
		telemetry.WithEnabled(cfg.Enabled),
		telemetry.WithLogger(logger),
	)

	if sampler == nil {
		sampler = host.New()
	}

	logger.Info("agent started",
		zap.String("server", cfg.Address),
		zap.Duration("poll", cfg.PollInterval),
		zap.Duration("flush", cfg.FlushInterval),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("enabled", cfg.Enabled),
	)
	// Delivery failures are already logged by the client; they never fail the process.
	if err := agentsvc.New(cfg, sampler, client, logger).Run(ctx); err != nil {
		logger.Warn("telemetry lost at shutdown", zap.Error(err))
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := client.Close(cctx); err != nil {
		logger.Warn("close telemetry client", zap.Error(err))
	}

	st := client.Stats()
	logger.Info("agent stopped",
		zap.Int64("recorded", st.Recorded),
		zap.Int64("delivered", st.Delivered),
		zap.Int64("dropped", st.Dropped),
	)
	return nil
}
