package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	defaultListenAndServeAddr = ":8080"
	defaultStoreInterval      = 300 * time.Second
)

type ServerConfig struct {
	Address      string
	DSN          string
	Key          string
	JWTSecret    string
	RedactSchema string
	AuditFile    string
	AuditURL     string
	File         string
	Interval     time.Duration
	Restore      bool
}

// LoadServerConfig reads the ingestion server configuration. CLI > ENV > defaults.
func LoadServerConfig(args []string, out io.Writer) (ServerConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		addrOpt, dsnOpt, keyOpt, jwtOpt, schemaOpt  string
		auditFileOpt, auditURLOpt, fileOpt, ivalOpt string
		restoreOpt                                  bool
	)
	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAndServeAddr))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for Postgres, in-memory storage when empty")
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 verification")
	fs.StringVar(&jwtOpt, "j", "", "HMAC secret for bearer JWT validation, auth disabled when empty")
	fs.StringVar(&schemaOpt, "s", "", "YAML file listing tags to redact")
	fs.StringVar(&auditFileOpt, "audit-file", "", "append audit events to this file")
	fs.StringVar(&auditURLOpt, "audit-url", "", "POST audit events to this URL")
	fs.StringVar(&fileOpt, "f", "", "snapshot file for in-memory storage")
	fs.StringVar(&ivalOpt, "i", "", fmt.Sprintf("snapshot interval (0 - on every batch), default: %s", defaultStoreInterval))
	fs.BoolVar(&restoreOpt, "r", false, "restore snapshot on start")

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}
	r := newResolver(fs, false)

	cfg := ServerConfig{
		Address:      normalizeListenAndServeURL(r.str("ADDRESS", "a", addrOpt, defaultListenAndServeAddr)),
		DSN:          r.str("DATABASE_DSN", "d", dsnOpt, ""),
		Key:          r.str("KEY", "k", keyOpt, ""),
		JWTSecret:    r.str("JWT_SECRET", "j", jwtOpt, ""),
		RedactSchema: r.str("REDACT_SCHEMA", "s", schemaOpt, ""),
		AuditFile:    r.str("AUDIT_FILE", "audit-file", auditFileOpt, ""),
		AuditURL:     r.str("AUDIT_URL", "audit-url", auditURLOpt, ""),
		File:         r.str("FILE_STORAGE_PATH", "f", fileOpt, ""),
	}

	_, port, err := net.SplitHostPort(cfg.Address)
	if err != nil || port == "" {
		return ServerConfig{}, fmt.Errorf("invalid listen address: %q", cfg.Address)
	}

	if cfg.Interval, err = r.duration("STORE_INTERVAL", "i", ivalOpt, defaultStoreInterval); err != nil {
		return ServerConfig{}, err
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.Restore, err = r.boolean("RESTORE", "r", restoreOpt, false); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func normalizeListenAndServeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAndServeAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
