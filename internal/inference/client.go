package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cyclopcam/logs"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 60 * time.Second

// Client is the HTTP transport shared by the remote collaborators. All calls
// pass through the same Gate.
type Client struct {
	HTTP *http.Client
	Gate *Gate
	Log  logs.Log
}

// NewClient creates a client with the given per-call timeout.
func NewClient(log logs.Log, timeout time.Duration, gate *Gate) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if gate == nil {
		gate = NewGate(1)
	}
	return &Client{
		HTTP: &http.Client{Timeout: timeout},
		Gate: gate,
		Log:  log,
	}
}

// do sends req through the gate and decodes a JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	return c.Gate.Do(req.Context(), func() error {
		start := time.Now()
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("%s %s: %v. %s", req.Method, req.URL.Path, resp.Status, string(msg))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if c.Log != nil {
			c.Log.Debugf("%s %s took %v", req.Method, req.URL.Path, time.Since(start))
		}
		return nil
	})
}

// postJSON marshals body, posts it to endpoint and decodes the reply as T.
func postJSON[T any](ctx context.Context, c *Client, endpoint string, body any) (*T, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out T
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the /health endpoint on the host serving endpoint.
func (c *Client) Health(ctx context.Context, endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse %q: %w", endpoint, err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: %d", resp.StatusCode)
	}
	return nil
}
