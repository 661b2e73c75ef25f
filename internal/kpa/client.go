// Package kpa implements the HTTP client for the KPA EHS v1 API: request
// execution with response classification, bounded exponential backoff, a
// mandatory rate-limit cooldown, and page-number pagination.
package kpa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.kpaehs.com/v1"

const (
	// defaultMaxAttempts bounds the retry loop, first try included.
	defaultMaxAttempts = 5
	// defaultBackoff is the first retry delay; it doubles per attempt.
	defaultBackoff = 2 * time.Second
	// defaultCooldown is the mandatory wait after a rate_limit_exceeded
	// response, applied before the retriable retry is attempted.
	defaultCooldown = 120 * time.Second
)

// Options configures a Client. Token is required; everything else has a
// sensible default.
type Options struct {
	BaseURL            string
	Token              string
	UserAgent          string
	ExtraRetryStatuses []int
	Timeout            time.Duration
	Logger             *slog.Logger
}

// Client issues authenticated JSON requests against the KPA API. All
// endpoints are POST with a JSON body carrying the access token.
type Client struct {
	baseURL     string
	token       string
	userAgent   string
	extraRetry  map[int]bool
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
	cooldown    time.Duration

	// sleep is replaced in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from opts.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	extra := make(map[int]bool, len(opts.ExtraRetryStatuses))
	for _, s := range opts.ExtraRetryStatuses {
		extra[s] = true
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       opts.Token,
		userAgent:   opts.UserAgent,
		extraRetry:  extra,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		cooldown:    defaultCooldown,
		sleep:       sleepCtx,
	}
}

// APIError represents a failed API call. Retriable errors come from transient
// server conditions (5xx, configured extra statuses, rate limiting); anything
// else cannot succeed by retrying.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
	Retriable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error status code: %d, response: %s, url: %s", e.StatusCode, e.Body, e.URL)
}

// envelope is the common response wrapper: ok, an optional error string, and
// optional paging info.
type envelope struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// do POSTs payload (plus the access token) to path and returns the raw
// response body, retrying retriable failures with exponential backoff up to
// maxAttempts tries. Fatal failures return immediately.
func (c *Client) do(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	url := c.baseURL + path

	body := map[string]any{"token": c.token}
	for k, v := range payload {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		respBody, err := c.doOnce(ctx, url, data)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.Retriable {
			return nil, err
		}
		if attempt == c.maxAttempts {
			break
		}

		c.logger.Info("retrying request", "url", url, "attempt", attempt, "backoff", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

// doOnce sends one request and classifies the response. A nil error means
// success and the returned bytes are the parsed-ready body.
func (c *Client) doOnce(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are transient.
		return nil, &APIError{StatusCode: 0, Body: err.Error(), URL: url, Retriable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: err.Error(), URL: url, Retriable: true}
	}

	if resp.StatusCode == http.StatusOK {
		var env envelope
		// An unparseable 200 body falls through to the success path; the
		// endpoint wrapper will surface the decode error.
		_ = json.Unmarshal(respBody, &env)

		if env.Error == "rate_limit_exceeded" {
			c.logger.Info("rate limit exceeded, cooling down", "url", url, "cooldown", c.cooldown)
			if err := c.sleep(ctx, c.cooldown); err != nil {
				return nil, err
			}
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody), URL: url, Retriable: true}
		}
		if env.OK != nil && !*env.OK {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody), URL: url}
		}
		return respBody, nil
	}

	if c.extraRetry[resp.StatusCode] || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody), URL: url, Retriable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody), URL: url}
	}
	return respBody, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
