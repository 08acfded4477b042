package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"levelhub/pkg/logging"
)

// HTTPClient wraps http.Client with bounded retries on transient
// failures (network errors, 5xx, 429 with Retry-After). Backoff doubles
// per attempt and carries no jitter so tests stay deterministic.
type HTTPClient struct {
	Client  *http.Client
	Retries int
	Backoff time.Duration
	Log     logging.Logger
}

func NewHTTPClient(log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.Discard
	}
	return &HTTPClient{
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retries: 3,
		Backoff: 500 * time.Millisecond,
		Log:     log,
	}
}

// Get issues a GET with the given headers, retrying transient failures.
// The caller owns the response body.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	var lastErr error
	delay := c.Backoff

	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			c.Log.Debug("retrying request", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request %s: %w", url, err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", url, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if wait := retryAfter(resp); wait > 0 {
				delay = wait
			}
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("request %s: status %d: %s", url, resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("request %s: status %d: %s", url, resp.StatusCode, string(body))
		}

		return resp, nil
	}

	return nil, lastErr
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	resp, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
