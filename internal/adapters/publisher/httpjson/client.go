package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/misc"
	"github.com/vshulcz/Telemetra/internal/ports"
)

// IngestPath is the server route that accepts telemetry batches.
const IngestPath = "/api/v1/telemetry"

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Client delivers telemetry batches to the ingestion server as JSON.
// It makes exactly one request per batch and never retries.
type Client struct {
	base       *url.URL
	hc         *http.Client
	apiKey     string
	signingKey string
	userAgent  string
}

var _ ports.Transport = (*Client)(nil)

var bufferPool = misc.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) })

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithSigningKey adds a HashSHA256 header computed over the body and key.
func WithSigningKey(key string) Option {
	return func(c *Client) {
		c.signingKey = strings.TrimSpace(key)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New normalizes the base address and returns a Client. A nil hc is replaced
// with a pooled client without a global timeout; deadlines come from the
// request context.
func New(serverAddr string, hc *http.Client, opts ...Option) (*Client, error) {
	if strings.TrimSpace(serverAddr) == "" {
		return nil, domain.NewDeliveryError(domain.KindConfig, errors.New("empty server address"))
	}
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	u, err := url.Parse(normalizeBase(serverAddr))
	if err != nil {
		return nil, domain.NewDeliveryError(domain.KindConfig, fmt.Errorf("parse server address: %w", err))
	}
	if u.Host == "" {
		return nil, domain.NewDeliveryError(domain.KindConfig, fmt.Errorf("server address %q has no host", serverAddr))
	}
	c := &Client{base: u, hc: hc, userAgent: "telemetra-client"}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func normalizeBase(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	return "http://" + strings.TrimRight(s, "/")
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

type payload struct {
	Points []domain.Point `json:"points"`
}

// Deliver posts the batch as {"points":[...]}. Any non-2xx status is a
// KindServer error carrying the status code and response text.
func (c *Client) Deliver(ctx context.Context, batch domain.Batch) (retErr error) {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	points := batch.Points
	if points == nil {
		points = []domain.Point{}
	}
	if err := json.NewEncoder(buf).Encode(payload{Points: points}); err != nil {
		return domain.NewDeliveryError(domain.KindSerialization, err)
	}
	body := bytes.TrimRight(buf.Bytes(), "\n")

	req, err := c.newRequest(ctx, body, batch.ID)
	if err != nil {
		return domain.NewDeliveryError(domain.KindConfig, err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = domain.NewDeliveryError(domain.KindNetwork, fmt.Errorf("close response body: %w", cerr))
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return domain.NewDeliveryError(domain.KindNetwork, fmt.Errorf("drain body: %w", err))
		}
		return nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.DeliveryError{
		Kind:       domain.KindServer,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(text)),
	}
}

func (c *Client) newRequest(ctx context.Context, body []byte, batchID string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(IngestPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.signingKey != "" {
		req.Header.Set("HashSHA256", misc.SumSHA256(body, c.signingKey))
	}
	if batchID != "" {
		req.Header.Set("X-Batch-ID", batchID)
	}
	return req, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewDeliveryError(domain.KindTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewDeliveryError(domain.KindTimeout, err)
	}
	return domain.NewDeliveryError(domain.KindNetwork, err)
}
