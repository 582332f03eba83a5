package telemetry

import "context"

type Client struct{}

func (c *Client) Record(ctx context.Context, v float64) error { return nil }

func (c *Client) RecordMetric(ctx context.Context, name string, v float64) error { return nil }

func (c *Client) Flush(ctx context.Context) error { return nil }

func (c *Client) Close(ctx context.Context) error { return nil }

func (c *Client) Len() int { return 0 }
