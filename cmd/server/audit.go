package main

import (
	"errors"

	"go.uber.org/zap"

	auditfile "github.com/vshulcz/Telemetra/internal/adapters/audit/file"
	remoteaudit "github.com/vshulcz/Telemetra/internal/adapters/audit/remote"
	"github.com/vshulcz/Telemetra/internal/config"
	"github.com/vshulcz/Telemetra/internal/services/audit"
)

// buildAudit returns a nil subject when no audit sink is configured.
// The returned close func is always non-nil.
func buildAudit(cfg config.ServerConfig, logger *zap.Logger) (*audit.Subject, func() error, error) {
	var (
		observers []audit.Observer
		closers   []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	if cfg.AuditFile != "" {
		w := auditfile.New(cfg.AuditFile)
		observers = append(observers, w)
		closers = append(closers, w.Close)
	}
	if cfg.AuditURL != "" {
		rc, err := remoteaudit.New(cfg.AuditURL, nil)
		if err != nil {
			return nil, closeAll, err
		}
		observers = append(observers, rc)
	}
	if len(observers) == 0 {
		return nil, closeAll, nil
	}

	subject := audit.NewSubject(observers...)
	subject.SetErrorHandler(func(err error) {
		logger.Warn("audit delivery failed", zap.Error(err))
	})
	return subject, closeAll, nil
}
