// Package client provides the HTTP client for the Compere rating API.
//
// A single Client carries the base URL, a fixed request deadline and the
// shared session. Every request gets the session's bearer token when one is
// present; any 401 answer clears the session as a side effect. There is no
// retry and no backoff.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/compere-go/internal/metrics"
	"github.com/raphaelgruber/compere-go/internal/session"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout is the fixed deadline applied to every call.
const DefaultTimeout = 10 * time.Second

// slowCallThreshold is the duration above which calls are logged at WARN level.
const slowCallThreshold = time.Second

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Session    *session.Session
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// Client talks to the Compere API. The domain facades hang off it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	logger     *slog.Logger
	metrics    *metrics.Collector

	Entities    *EntityAPI
	Comparisons *ComparisonAPI
	Ratings     *RatingAPI
	MAB         *MABAPI
	Auth        *AuthAPI
	Health      *HealthAPI
}

// New creates a configured client. Missing fields get defaults: loopback base
// URL, 10s timeout, an in-memory anonymous session and a discard logger.
func New(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sess := cfg.Session
	if sess == nil {
		// A nil store never fails to load.
		sess, _ = session.New(nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		session:    sess,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
	c.Entities = &EntityAPI{c: c}
	c.Comparisons = &ComparisonAPI{c: c}
	c.Ratings = &RatingAPI{c: c}
	c.MAB = &MABAPI{c: c}
	c.Auth = &AuthAPI{c: c}
	c.Health = &HealthAPI{c: c}
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session shared by all calls.
func (c *Client) Session() *session.Session {
	return c.session
}

// request describes one API call. route is the path template used for
// metrics and logs; path is the concrete path.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
}

// do sends the request and decodes a JSON response into result (if non-nil).
func (c *Client) do(ctx context.Context, r request, result any) error {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	op := r.method + " " + r.route
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, requestID, 0, time.Since(start), err)
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		c.observe(op, requestID, resp.StatusCode, duration, err)
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.session.Clear(); err != nil {
			c.logger.Warn("failed to clear session after 401", "error", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		c.observe(op, requestID, resp.StatusCode, duration, apiErr)
		return apiErr
	}
	c.observe(op, requestID, resp.StatusCode, duration, nil)

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// observe records metrics and logs a finished call.
func (c *Client) observe(op, requestID string, status int, duration time.Duration, err error) {
	if c.metrics != nil {
		c.metrics.RecordCall(op, status, duration)
	}

	attrs := []any{
		"op", op,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"request_id", requestID,
	}

	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		c.logger.Warn("api call failed", attrs...)
	case duration > slowCallThreshold:
		c.logger.Warn("slow api call", attrs...)
	default:
		c.logger.Debug("api call completed", attrs...)
	}
}

// Message reduces err to the server-supplied detail, or fallback when the
// server gave none (transport errors, timeouts, undecodable bodies).
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
