package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/Telemetra/internal/adapters/http/ginserver"
	"github.com/vshulcz/Telemetra/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/Telemetra/internal/adapters/redact"
	"github.com/vshulcz/Telemetra/internal/config"
	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
	"github.com/vshulcz/Telemetra/internal/services/ingest"
)

const shutdownTimeout = 10 * time.Second

// run serves until ctx is done. ready, when non-nil, receives the bound
// listener address once the server accepts connections.
func run(ctx context.Context, args []string, logger *zap.Logger, ready chan<- string) error {
	cfg, err := config.LoadServerConfig(args, io.Discard)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	logger.Info("config loaded",
		zap.String("addr", cfg.Address),
		zap.Bool("postgres", cfg.DSN != ""),
		zap.String("file", cfg.File),
		zap.Duration("interval", cfg.Interval),
		zap.Bool("restore", cfg.Restore),
		zap.Bool("auth", cfg.JWTSecret != ""),
	)

	st := openStorage(ctx, cfg, logger)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close storage", zap.Error(err))
		}
	}()

	subject, closeAudit, err := buildAudit(cfg, logger)
	defer func() {
		if err := closeAudit(); err != nil {
			logger.Warn("close audit", zap.Error(err))
		}
	}()
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []ingest.Option{ingest.WithLogger(logger), ingest.WithRegisterer(reg)}
	if subject != nil {
		opts = append(opts, ingest.WithAudit(subject))
	}
	if cfg.RedactSchema != "" {
		filter, err := redact.Load(cfg.RedactSchema)
		if err != nil {
			return err
		}
		opts = append(opts, ingest.WithRedactor(filter))
	}

	snap := &snapshotter{dst: st.persister, log: logger}
	save := snap.save
	if st.persister != nil && cfg.Interval == 0 {
		opts = append(opts, ingest.WithOnChanged(save))
	}
	svc := ingest.New(st.repo, opts...)
	snap.src = svc

	gin.SetMode(gin.ReleaseMode)
	router := ginserver.NewRouter(
		ginserver.NewHandler(svc),
		reg,
		middlewares.BearerAuth(cfg.JWTSecret),
		middlewares.ZapLogger(logger),
		middlewares.RequestContext(),
		middlewares.HashSHA256(cfg.Key),
	)

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("server started", zap.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if st.persister != nil && cfg.Interval > 0 {
		g.Go(func() error {
			t := time.NewTicker(cfg.Interval)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					save(gctx)
				}
			}
		})
	}
	err = g.Wait()

	if st.persister != nil {
		save(context.WithoutCancel(ctx))
	}
	logger.Info("server stopped")
	return err
}

type pointSource interface {
	All(ctx context.Context) ([]domain.Point, error)
}

// snapshotter writes the stored points through a Persister. Saves are
// serialized so an older read never replaces a newer file.
type snapshotter struct {
	src pointSource
	dst ports.Persister
	log *zap.Logger
	mu  sync.Mutex
}

func (s *snapshotter) save(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	points, err := s.src.All(ctx)
	if err == nil {
		err = s.dst.Save(ctx, points)
	}
	if err != nil {
		s.log.Warn("save failed", zap.Error(err))
	}
}
