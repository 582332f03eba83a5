package main

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vshulcz/Telemetra/internal/adapters/persistence/file"
	memrepo "github.com/vshulcz/Telemetra/internal/adapters/repository/memory"
	pgrepo "github.com/vshulcz/Telemetra/internal/adapters/repository/postgres"
	"github.com/vshulcz/Telemetra/internal/config"
	"github.com/vshulcz/Telemetra/internal/misc"
	"github.com/vshulcz/Telemetra/internal/ports"
)

// storage is the point repository chosen for this run. persister is set
// only for the in-memory repository with a snapshot file.
type storage struct {
	repo      ports.PointsRepo
	persister ports.Persister
	close     func() error
}

func (s *storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openStorage prefers Postgres when a DSN is configured and falls back to
// memory when the database stays unreachable after retries.
func openStorage(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger) *storage {
	if cfg.DSN != "" {
		st, err := openPostgres(ctx, cfg.DSN)
		if err == nil {
			logger.Info("db connected & migrated")
			return st
		}
		logger.Warn("postgres init failed, falling back to memory", zap.Error(err))
	}

	repo := memrepo.New()
	st := &storage{repo: repo}
	if cfg.File == "" {
		return st
	}
	st.persister = file.New(cfg.File)
	if cfg.Restore {
		if err := st.persister.Restore(ctx, repo); err != nil {
			logger.Warn("restore failed", zap.Error(err))
		} else {
			n, _ := repo.Count(ctx)
			logger.Info("restore ok", zap.String("file", cfg.File), zap.Int("points", n))
		}
	}
	return st
}

func openPostgres(ctx context.Context, dsn string) (*storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	op := func() error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return pgrepo.Migrate(ctx, db)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, pgrepo.IsRetryable, op); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &storage{repo: pgrepo.New(db), close: db.Close}, nil
}
