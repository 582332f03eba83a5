// Package remoteaudit forwards audit events to an HTTP collector.
package remoteaudit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/vshulcz/Telemetra/internal/services/audit"
)

const defaultTimeout = 5 * time.Second

// Client sends audit events to a remote HTTP endpoint.
type Client struct {
	hc       *http.Client
	endpoint string
}

var _ audit.Observer = (*Client)(nil)

// New validates the endpoint URL and returns a Client that POSTs audit events there.
func New(rawURL string, hc *http.Client) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("audit url is empty")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid audit url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid audit url scheme %q", u.Scheme)
	}
	if hc == nil {
		hc = cleanhttp.DefaultClient()
		hc.Timeout = defaultTimeout
	}
	return &Client{endpoint: rawURL, hc: hc}, nil
}

// Notify POSTs the event as JSON. Any non-2xx status is an error.
func (c *Client) Notify(ctx context.Context, evt audit.Event) (retErr error) {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if evt.BatchID != "" {
		req.Header.Set("X-Batch-ID", evt.BatchID)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("audit post: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close audit response: %w", cerr)
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain audit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit post status %d", resp.StatusCode)
	}
	return nil
}
