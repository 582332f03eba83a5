package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/Telemetra/internal/domain"
)

const (
	defaultServerAddr     = "http://localhost:8080"
	defaultRequestTimeout = 30 * time.Second
	defaultBatchSize      = 100
	defaultPollInterval   = 2 * time.Second
	defaultFlushInterval  = 10 * time.Second
)

type ClientConfig struct {
	Address        string
	APIKey         string
	Key            string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	FlushInterval  time.Duration
	BatchSize      int
	Enabled        bool
}

// LoadClientConfig reads the agent configuration. ENV > CLI > defaults.
// Invalid values are reported as configuration delivery errors.
func LoadClientConfig(args []string, out io.Writer) (ClientConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		addrOpt, apiKeyOpt, keyOpt    string
		timeoutOpt, pollOpt, flushOpt string
		batchOpt                      int
		enabledOpt                    bool
	)
	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("server address (host:port or URL), default: %s", defaultServerAddr))
	fs.StringVar(&apiKeyOpt, "api-key", "", "bearer token for the ingestion endpoint")
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 header")
	fs.StringVar(&timeoutOpt, "t", "", fmt.Sprintf("request timeout, default: %s", defaultRequestTimeout))
	fs.IntVar(&batchOpt, "b", 0, fmt.Sprintf("points per batch, default: %d", defaultBatchSize))
	fs.BoolVar(&enabledOpt, "e", true, "enable telemetry delivery")
	fs.StringVar(&pollOpt, "p", "", fmt.Sprintf("poll interval, default: %s", defaultPollInterval))
	fs.StringVar(&flushOpt, "f", "", fmt.Sprintf("flush interval, default: %s", defaultFlushInterval))

	if err := fs.Parse(args); err != nil {
		return ClientConfig{}, err
	}
	r := newResolver(fs, true)

	cfg := ClientConfig{
		Address: normalizeAddressURL(r.str("ADDRESS", "a", addrOpt, defaultServerAddr)),
		APIKey:  r.str("API_KEY", "api-key", apiKeyOpt, ""),
		Key:     r.str("KEY", "k", keyOpt, ""),
	}
	if u, err := url.ParseRequestURI(cfg.Address); err != nil || u.Host == "" {
		return ClientConfig{}, configError(fmt.Errorf("invalid server address: %q", cfg.Address))
	}

	var err error
	if cfg.RequestTimeout, err = r.duration("REQUEST_TIMEOUT", "t", timeoutOpt, defaultRequestTimeout); err != nil {
		return ClientConfig{}, configError(err)
	}
	if cfg.RequestTimeout < 0 {
		return ClientConfig{}, configError(fmt.Errorf("request timeout must be >= 0, got %v", cfg.RequestTimeout))
	}
	if cfg.BatchSize, err = r.integer("BATCH_SIZE", "b", batchOpt, defaultBatchSize); err != nil {
		return ClientConfig{}, configError(err)
	}
	if cfg.BatchSize <= 0 {
		return ClientConfig{}, configError(fmt.Errorf("batch size must be > 0, got %d", cfg.BatchSize))
	}
	if cfg.Enabled, err = r.boolean("TELEMETRY_ENABLED", "e", enabledOpt, true); err != nil {
		return ClientConfig{}, configError(err)
	}
	if cfg.PollInterval, err = r.duration("POLL_INTERVAL", "p", pollOpt, defaultPollInterval); err != nil {
		return ClientConfig{}, configError(err)
	}
	if cfg.PollInterval <= 0 {
		return ClientConfig{}, configError(fmt.Errorf("poll interval must be > 0, got %v", cfg.PollInterval))
	}
	if cfg.FlushInterval, err = r.duration("FLUSH_INTERVAL", "f", flushOpt, defaultFlushInterval); err != nil {
		return ClientConfig{}, configError(err)
	}
	if cfg.FlushInterval <= 0 {
		return ClientConfig{}, configError(fmt.Errorf("flush interval must be > 0, got %v", cfg.FlushInterval))
	}
	return cfg, nil
}

func configError(err error) error {
	return domain.NewDeliveryError(domain.KindConfig, err)
}

func normalizeAddressURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultServerAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + strings.TrimRight(s, "/")
}
