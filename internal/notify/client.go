package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// FunctionClient calls a remote confirmation endpoint over HTTP.
type FunctionClient struct {
	URL    string
	APIKey string // sent as bearer token when set
	Client *http.Client
}

func NewFunctionClient(url, apiKey string, timeout time.Duration) *FunctionClient {
	return &FunctionClient{URL: url, APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

func (c *FunctionClient) Notify(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &NotificationError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return &NotificationError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return &NotificationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &NotificationError{Status: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// LocalNotifier invokes the service in-process.
type LocalNotifier struct {
	Service *Service
}

func (n *LocalNotifier) Notify(ctx context.Context, req Request) error {
	if _, err := n.Service.Send(ctx, req); err != nil {
		return &NotificationError{Err: err}
	}
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Request) error { return nil }
