// Package client provides the scan backend API client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sentrixio/scanwatch/pkg/compress"
	"github.com/sentrixio/scanwatch/pkg/core"
	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/metrics"
	"github.com/sentrixio/scanwatch/pkg/retry"
)

// Client is the scan backend API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration

	compressor *compress.Compressor
	limiter    *rate.Limiter

	logger  core.Logger
	metrics metrics.Collector
}

// Config holds client configuration.
type Config struct {
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timeout is the per-request timeout. Zero means none: a hung request
	// stalls only the poll tick that issued it.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Retries apply to GET requests only, on transport errors, 429 and 5xx.
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`

	// RateLimit is requests per second (0 = unlimited).
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`

	// Request body compression: "zstd", "gzip" or "none".
	CompressionAlgo  string `yaml:"compression_algo" json:"compression_algo"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`

	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// DefaultConfig returns default client config.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "http://localhost:5000",
		MaxRetries:       2,
		RetryDelay:       500 * time.Millisecond,
		RateLimit:        10,
		RateBurst:        6,
		CompressionAlgo:  "zstd",
		CompressionLevel: int(compress.LevelDefault),
		UserAgent:        "scanwatch/1.0",
	}
}

// Option is a function that configures the client.
type Option func(*Client)

// New creates a client from cfg and applies opts on top.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.ErrMissingBaseURL
	}

	c := &Client{
		baseURL:    base,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     &core.NopLogger{},
		metrics:    &metrics.NopCollector{},
	}
	if c.userAgent == "" {
		c.userAgent = "scanwatch/1.0"
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 500 * time.Millisecond
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if algo := compress.ParseAlgorithm(cfg.CompressionAlgo); algo != compress.AlgorithmNone {
		c.compressor = compress.NewCompressor(algo, compress.Level(cfg.CompressionLevel))
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry sets retry configuration.
func WithRetry(maxRetries int, retryDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = retryDelay
	}
}

// WithRateLimit paces requests to rps with the given burst. rps <= 0
// disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithoutCompression disables request compression. Responses are still
// negotiated and decoded.
func WithoutCompression() Option {
	return func(c *Client) {
		c.compressor = nil
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(c *Client) {
		c.logger = core.OrNop(l)
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = metrics.OrNop(m)
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs a request and decodes a JSON response into out (when
// non-nil). GET requests are retried with jittered exponential backoff.
func (c *Client) doRequest(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.E(errors.KindInternal, op, "marshal request", err)
		}
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := retry.NewExponential(c.retryDelay).Delay(attempt)
			c.logger.Debug("%s: retrying (attempt %d/%d) after %v: %v", op, attempt, retries, backoff, lastErr)

			select {
			case <-ctx.Done():
				return errors.E(errors.KindNetwork, op, "cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		data, err := c.doRequestOnce(ctx, op, method, path, payload)
		if err == nil {
			if out == nil || len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return errors.E(errors.KindPayload, op, "decode response", err)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) {
			return err
		}
	}

	return lastErr
}

func shouldRetry(err error) bool {
	if _, ok := IsHTTPError(err); ok {
		return IsRetryable(err)
	}
	return errors.IsNetworkError(err)
}

// doRequestOnce performs a single HTTP request and returns the decoded body.
func (c *Client) doRequestOnce(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.E(errors.KindNetwork, op, "rate limiter", err)
		}
	}

	requestBody, contentEncoding := c.compressor.MaybeCompress(payload)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(requestBody))
	if err != nil {
		return nil, errors.E(errors.KindInternal, op, "create request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", compress.AcceptEncoding)
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	timer := metrics.NewTimer(c.metrics, metrics.HTTPRequestDuration.Name, "method", method)
	resp, err := c.httpClient.Do(req)
	timer.ObserveDuration()
	if err != nil {
		c.metrics.CounterInc(metrics.HTTPRequestsTotal.Name, "method", method, "status", "error")
		return nil, errors.E(errors.KindNetwork, op, "request failed", err)
	}
	defer resp.Body.Close()
	c.metrics.CounterInc(metrics.HTTPRequestsTotal.Name, "method", method, "status", strconv.Itoa(resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.E(errors.KindNetwork, op, "read response", err)
	}
	data, err := compress.DecodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, errors.E(errors.KindPayload, op, "decode body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(resp.StatusCode, data)
	}
	return data, nil
}

// HTTPError represents a non-2xx response. Message carries the backend's
// {"error": ...} text when present.
type HTTPError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message,omitempty"`
	Body       string `json:"body"`
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: string(body)}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Error
	}
	return e
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// IsHTTPError checks if err is an HTTPError and returns it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsClientError checks if the error is a 4xx client error.
func IsClientError(err error) bool {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500
	}
	return false
}

// IsServerError checks if the error is a 5xx server error.
func IsServerError(err error) bool {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode >= 500
	}
	return false
}

// IsRateLimitError checks if the error is a 429 rate limit error.
func IsRateLimitError(err error) bool {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsNotFoundError checks if the error is a 404 not found error.
func IsNotFoundError(err error) bool {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRetryable checks if the error should be retried.
func IsRetryable(err error) bool {
	if IsRateLimitError(err) {
		return true
	}
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode >= 500 && httpErr.StatusCode != http.StatusNotImplemented
	}
	return false
}

// Message returns the user-facing text of an API error: the backend's error
// message for HTTP errors, err.Error() otherwise.
func Message(err error) string {
	if httpErr, ok := IsHTTPError(err); ok && httpErr.Message != "" {
		return httpErr.Message
	}
	return err.Error()
}
