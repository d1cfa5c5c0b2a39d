// Package client provides the Marketo REST transport with request pacing,
// retries, envelope decoding and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for Marketo transport operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketo_requests_total",
		Help: "Total Marketo requests by method, path and status",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketo_request_duration_seconds",
		Help:    "Marketo request duration in seconds by path",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"path"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketo_errors_total",
		Help: "Total Marketo errors by class",
	}, []string{"class"})

	limiterWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketo_transport_limiter_wait_seconds",
		Help:    "Time spent waiting for the requests-per-second limiter",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	})
)

// ErrorClass represents a classification of transport and API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx errors and transient Marketo codes.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents HTTP 429 and Marketo codes 606/615.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassValidation represents a success:false envelope rejecting
	// caller-supplied data.
	ErrorClassValidation ErrorClass = "validation"
)

// Client is the Marketo REST transport.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	retry      map[ErrorClass]RetryConfig
	config     Config
	logger     zerolog.Logger
}

// Config holds the transport configuration.
type Config struct {
	// BaseURL is the REST root, e.g. "https://123-ABC-456.mktorest.com/rest".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// TokenSource supplies bearer tokens. Nil sends no Authorization header.
	TokenSource TokenSource

	// RateLimit is the requests-per-second ceiling (0 disables).
	// Marketo allows 100 calls per 20 seconds per instance.
	RateLimit float64

	// MaxRetries is the number of attempts including the first one.
	MaxRetries int

	// InitialBackoff scales the per-class retry backoff.
	InitialBackoff time.Duration

	// Timeout per HTTP attempt.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, tokens TokenSource) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "marketo-client/0.1.0",
		TokenSource:    tokens,
		RateLimit:      5,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		Timeout:        30 * time.Second,
	}
}

// New creates a new Marketo transport.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		limiter: rate.NewLimiter(limit, burst),
		retry:   retryConfigs(cfg.InitialBackoff),
		config:  cfg,
		logger:  log.With().Str("component", "marketo-transport").Logger(),
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post performs a bodiless POST request.
func (c *Client) Post(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, query, nil)
}

// PostJSON performs a POST request with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, query, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, query, nil)
}

// Do performs a request with pacing, retries and envelope decoding. A
// success:false envelope is returned as an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var errClass ErrorClass
	attempts := 0

	operation := func() (*Response, error) {
		attempts++

		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limiter wait: %w", err))
		}
		limiterWaitSeconds.Observe(time.Since(waitStart).Seconds())

		req, err := c.buildRequest(ctx, method, path, query, payload)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("attempt", attempts).
			Msg("Executing Marketo request")

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			errClass = c.classifyError(nil, err)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(method, path, "network_error").Inc()
			c.logger.Warn().Err(err).Str("path", path).Msg("HTTP request failed")
			return nil, &APIError{ErrorClass: errClass, Message: "request failed", Err: err}
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			errClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			return nil, &APIError{StatusCode: httpResp.StatusCode, ErrorClass: errClass, Message: "read response body", Err: err}
		}

		requestsTotal.WithLabelValues(method, path, strconv.Itoa(httpResp.StatusCode)).Inc()

		if httpResp.StatusCode >= 400 {
			errClass = c.classifyError(httpResp, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("path", path).
				Int("status", httpResp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Marketo request error")

			apiErr := &APIError{
				StatusCode: httpResp.StatusCode,
				ErrorClass: errClass,
				Message:    strings.TrimSpace(string(raw)),
			}
			if apiErr.Message == "" {
				apiErr.Message = httpResp.Status
			}
			if !shouldRetry(errClass) {
				return nil, backoff.Permanent(apiErr)
			}
			if secs, convErr := strconv.Atoi(httpResp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				// keep the APIError in the chain alongside the server delay
				return nil, fmt.Errorf("%w: %w", apiErr, backoff.RetryAfter(secs))
			}
			return nil, apiErr
		}

		resp, err := decodeResponse(raw)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp.StatusCode = httpResp.StatusCode

		if !resp.Success {
			apiErr := envelopeError(resp)
			errClass = apiErr.ErrorClass
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("path", path).
				Str("request_id", resp.RequestID).
				Str("code", apiErr.Code).
				Str("error_class", string(errClass)).
				Msg("Marketo rejected request")

			if !shouldRetry(errClass) {
				return nil, backoff.Permanent(apiErr)
			}
			return nil, apiErr
		}

		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&classBackOff{configs: c.retry, class: func() ErrorClass { return errClass }}),
		backoff.WithMaxTries(uint(c.config.MaxRetries)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			recordRetry(errClass, wait)
			c.logger.Debug().
				Err(err).
				Str("error_class", string(errClass)).
				Int("attempt", attempts).
				Dur("backoff", wait).
				Msg("Retrying request after backoff")
		}),
	)
	if err != nil {
		if attempts >= c.config.MaxRetries && shouldRetry(errClass) {
			retryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
			c.logger.Error().
				Err(err).
				Str("path", path).
				Str("error_class", string(errClass)).
				Int("max_attempts", c.config.MaxRetries).
				Msg("Retry attempts exhausted")
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
		}
		return nil, err
	}

	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.config.TokenSource != nil {
		token, err := c.config.TokenSource.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

// classifyError categorizes an HTTP-level error for observability and retry.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
