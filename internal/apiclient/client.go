// Package apiclient is the JSON-over-HTTP transport shared by the generation
// and embedding backends. It adds bearer authentication, client-side request
// pacing, and opt-in retry around a plain http.Client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/codescribe/internal/backoff"
)

// DefaultTimeout bounds a single HTTP exchange
const DefaultTimeout = 120 * time.Second

// maxErrorBody limits how much of a failed response is echoed into errors
const maxErrorBody = 2048

// ErrNoBaseURL is returned when a client is built without an endpoint
var ErrNoBaseURL = errors.New("base URL is required")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configure a Client
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	Retry             backoff.Config
	HTTPClient        *http.Client // optional; overrides Timeout
}

// Client posts JSON documents to one API endpoint
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      backoff.Config
}

// New creates a Client
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	retry := opts.Retry
	if retry.MaxAttempts < 1 {
		retry = backoff.Default()
	}

	return &Client{
		baseURL:    base,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		retry:      retry,
	}, nil
}

// BaseURL returns the endpoint root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON sends in as a JSON body to baseURL+path and decodes the response into out
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = backoff.Do(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.post(ctx, path, body, out)
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
		if !statusErr.Retryable() {
			return backoff.Permanent(statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	return nil
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
