// Package kaiten provides a resilient client for the Kaiten REST API.
package kaiten

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/logging"
	"github.com/lecap-inc/kaiten-billing/pkg/retry"
)

const (
	// DefaultTimeout bounds list endpoints (projects, cards, time-logs).
	DefaultTimeout = 60 * time.Second
	// LookupTimeout bounds small lookups (users, board roles, select values).
	LookupTimeout = 10 * time.Second
	// DefaultMinInterval is the pacing gap between two dispatches.
	DefaultMinInterval = 350 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://acme.kaiten.ru/api/latest.
	BaseURL string
	Token   string

	MinInterval   time.Duration
	Retry         *retry.Config
	Timeout       time.Duration
	LookupTimeout time.Duration

	// Debug logs every request/response pair in full.
	Debug bool
	// ShowSecrets disables masking of credential headers in debug output.
	ShowSecrets bool

	HTTPClient *http.Client
	Metrics    *Metrics
}

// Call describes one logical API request. Retries reuse the same Call.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	// Endpoint is a low-cardinality name used for metrics and logs.
	Endpoint string
	// Timeout bounds each attempt; zero means the client default.
	Timeout time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode    int
	Header        http.Header
	Body          []byte
	CorrelationID string
	Attempts      int
}

// Client talks to Kaiten. Every dispatch passes through a single pacing Gate
// owned by the client, so independent clients (one per tenant) do not share
// throttling state while concurrent callers of one client do.
type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	gate          *Gate
	retry         *retry.Config
	timeout       time.Duration
	lookupTimeout time.Duration
	debug         bool
	showSecrets   bool
	metrics       *Metrics
	logger        *zap.Logger
}

// NewClient creates a new Kaiten client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = LookupTimeout
	}
	if opts.HTTPClient == nil {
		// per-attempt deadlines come from the context
		opts.HTTPClient = &http.Client{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		token:         opts.Token,
		httpClient:    opts.HTTPClient,
		gate:          NewGate(opts.MinInterval),
		retry:         opts.Retry,
		timeout:       opts.Timeout,
		lookupTimeout: opts.LookupTimeout,
		debug:         opts.Debug,
		showSecrets:   opts.ShowSecrets,
		metrics:       opts.Metrics,
		logger:        logger.Named("kaiten"),
	}
}

// Request issues a single logical request and returns the last response read.
// Failures are returned as *TransportError, *RefusalError or *StatusError;
// the client never converts them into empty results.
func (c *Client) Request(ctx context.Context, method, p string, query url.Values, body interface{}) (*Response, error) {
	return c.Do(ctx, Call{Method: method, Path: p, Query: query, Body: body})
}

// Do executes a Call with pacing, retries and refusal detection.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	if call.Endpoint == "" {
		call.Endpoint = "custom"
	}
	if call.Timeout <= 0 {
		call.Timeout = c.timeout
	}

	endpoint, err := c.buildURL(call.Path, call.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	var payload []byte
	if call.Body != nil {
		payload, err = json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	correlationID := uuid.NewString()
	cfg := *c.retry
	if !isIdempotent(call.Method) {
		cfg.MaxRetries = 0
	}

	resp, err := retry.DoIfRetryable(ctx, &cfg, func(attempt int) (*Response, error) {
		if attempt > 0 {
			c.metrics.RetriesTotal.WithLabelValues(call.Endpoint).Inc()
		}
		return c.attempt(ctx, call, endpoint, payload, correlationID, attempt)
	})

	var refusal *RefusalError
	if errors.As(err, &refusal) {
		reason := refusal.Reason
		if refusal.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(reason, "rate limit") {
			reason = "rate_limit"
		}
		c.metrics.RefusalsTotal.WithLabelValues(call.Endpoint, reason).Inc()
		c.logger.Warn("Kaiten refused request",
			zap.String("correlation_id", correlationID),
			zap.String("endpoint", call.Endpoint),
			zap.Int("status", refusal.StatusCode),
			zap.String("reason", refusal.Reason))
	} else if err != nil {
		c.logger.Error("Kaiten request failed",
			zap.String("correlation_id", correlationID),
			zap.String("endpoint", call.Endpoint),
			zap.String("error", logging.SanitizeError(err)))
	}

	return resp, err
}

// attempt performs one wire dispatch and classifies the outcome.
func (c *Client) attempt(ctx context.Context, call Call, endpoint string, payload []byte, correlationID string, attempt int) (*Response, error) {
	waitStart := time.Now()
	if _, err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}
	c.metrics.ThrottleWait.Observe(time.Since(waitStart).Seconds())

	attemptCtx, cancel := context.WithTimeout(ctx, call.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, call.Method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", correlationID)

	c.logRequest(req, correlationID, attempt, payload)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RequestsTotal.WithLabelValues(call.Endpoint, "transport_error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Method: call.Method, Path: call.Path, CorrelationID: correlationID, Cause: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(start)
	c.metrics.RequestDuration.WithLabelValues(call.Endpoint).Observe(elapsed.Seconds())
	if err != nil {
		c.metrics.RequestsTotal.WithLabelValues(call.Endpoint, "transport_error").Inc()
		return nil, &TransportError{Method: call.Method, Path: call.Path, CorrelationID: correlationID, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	resp := &Response{
		StatusCode:    httpResp.StatusCode,
		Header:        httpResp.Header,
		Body:          body,
		CorrelationID: correlationID,
		Attempts:      attempt + 1,
	}
	c.logResponse(resp, call, elapsed)

	verdict := Classify(resp.StatusCode, resp.Header, resp.Body)
	c.metrics.RequestsTotal.WithLabelValues(call.Endpoint, verdict.Outcome.String()).Inc()

	switch verdict.Outcome {
	case OutcomeOK:
		return resp, nil
	case OutcomeRefused:
		return resp, &RefusalError{
			Method: call.Method, Path: call.Path, CorrelationID: correlationID,
			StatusCode: resp.StatusCode, Reason: verdict.Reason,
		}
	case OutcomeRetryable:
		if resp.StatusCode == http.StatusTooManyRequests {
			return resp, &RefusalError{
				Method: call.Method, Path: call.Path, CorrelationID: correlationID,
				StatusCode: resp.StatusCode, Reason: verdict.Reason,
				retryable: true, retryAfter: verdict.RetryAfter, hasHint: verdict.HasRetryAfter,
			}
		}
		return resp, &StatusError{
			Method: call.Method, Path: call.Path, CorrelationID: correlationID,
			StatusCode: resp.StatusCode, Body: logging.TruncateString(string(resp.Body), 512),
			retryable: true, retryAfter: verdict.RetryAfter, hasHint: verdict.HasRetryAfter,
		}
	default:
		return resp, &StatusError{
			Method: call.Method, Path: call.Path, CorrelationID: correlationID,
			StatusCode: resp.StatusCode, Body: logging.TruncateString(string(resp.Body), 512),
		}
	}
}

func (c *Client) logRequest(req *http.Request, correlationID string, attempt int, payload []byte) {
	if !c.debug {
		c.logger.Debug("Kaiten request",
			zap.String("correlation_id", correlationID),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("attempt", attempt))
		return
	}
	fields := []zap.Field{
		zap.String("correlation_id", correlationID),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("attempt", attempt),
		zap.Any("headers", logging.MaskHeaders(req.Header, c.showSecrets)),
	}
	if payload != nil {
		fields = append(fields, zap.ByteString("body", payload))
	}
	c.logger.Info("Kaiten request", fields...)
}

func (c *Client) logResponse(resp *Response, call Call, elapsed time.Duration) {
	hash := logging.HashPayload(resp.Body)
	if !c.debug {
		c.logger.Debug("Kaiten response",
			zap.String("correlation_id", resp.CorrelationID),
			zap.String("endpoint", call.Endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed),
			zap.Int("bytes", len(resp.Body)),
			zap.String("hash", hash))
		return
	}
	c.logger.Info("Kaiten response",
		zap.String("correlation_id", resp.CorrelationID),
		zap.String("endpoint", call.Endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.Any("headers", logging.MaskHeaders(resp.Header, c.showSecrets)),
		zap.ByteString("body", resp.Body),
		zap.String("hash", hash))
}

// Decode unmarshals the response body into v, reporting a ShapeError on mismatch.
func (r *Response) Decode(p, expected string, v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &ShapeError{Path: p, CorrelationID: r.CorrelationID, Expected: expected, Cause: err}
	}
	return nil
}

// buildURL joins the API root with a relative path and encodes the query.
func (c *Client) buildURL(p string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, p)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
