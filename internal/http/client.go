package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Common errors.
var (
	ErrNotFound         = errors.New("http: resource not found")
	ErrForbidden        = errors.New("http: access forbidden")
	ErrUnauthorized     = errors.New("http: unauthorized")
	ErrServerError      = errors.New("http: server error")
	ErrRetriesExhausted = errors.New("http: retries exhausted")
)

// Policy controls how a class of requests is retried. The catalog root uses
// a constant delay between attempts; quad page listings double the delay on
// each attempt. Downloads bypass Policy entirely and use a single attempt.
type Policy struct {
	// Attempts is the maximum number of tries, including the first.
	Attempts int

	// Backoff is the delay before the first retry.
	Backoff time.Duration

	// Exponential doubles the delay on each subsequent retry.
	// When false, every retry waits Backoff.
	Exponential bool

	// MaxBackoff caps the exponential delay. Ignored when zero.
	MaxBackoff time.Duration
}

// CatalogPolicy returns the retry policy for the catalog root listing.
func CatalogPolicy() Policy {
	return Policy{
		Attempts: 5,
		Backoff:  10 * time.Second,
	}
}

// PagePolicy returns the retry policy for quad page listings.
func PagePolicy() Policy {
	return Policy{
		Attempts:    5,
		Backoff:     2 * time.Second,
		Exponential: true,
		MaxBackoff:  60 * time.Second,
	}
}

// delay returns how long to wait before the given retry. attempt is 1-based:
// delay(1) is the wait before the second try.
func (p Policy) delay(attempt int) time.Duration {
	d := p.Backoff
	if p.Exponential {
		d = p.Backoff << uint(attempt-1)
		if p.MaxBackoff > 0 && d > p.MaxBackoff {
			d = p.MaxBackoff
		}
	}
	return d
}

// Options configures the HTTP client.
type Options struct {
	// Token is the Planet API key, sent as "Authorization: api-key <token>"
	// on every request. Empty means no auth header.
	Token string

	// Timeout for individual requests.
	// Default: 120s
	Timeout time.Duration

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             120 * time.Second,
		MaxIdleConnsPerHost: 16,
	}
}

// Client is an HTTP GET client with per-call retry policies. It underlies
// every outbound request: catalog listings retry per Policy, downloads
// stream with a single attempt.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 16
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Get performs a GET request with retries per policy and returns the
// response body. Transport errors and 5xx responses are retried; 4xx
// responses fail immediately. query may be nil.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, policy Policy) ([]byte, error) {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, policy.delay(attempt)); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, rawURL, query)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			resp.Body.Close()
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, policy.Attempts, lastErr)
}

// Stream performs a single-attempt GET and returns the response body for
// streaming. No retries: a failed download is reported, not repeated.
func (c *Client) Stream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// do issues one GET with the auth header attached.
func (c *Client) do(ctx context.Context, rawURL string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	if c.opts.Token != "" {
		req.Header.Set("Authorization", "api-key "+c.opts.Token)
	}

	return c.client.Do(req)
}

// sleep waits for d on the calling goroutine, or returns early if the
// context is cancelled. No locks are held while sleeping.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
