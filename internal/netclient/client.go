// Package netclient issues outbound HTTP requests with bounded retry,
// per-attempt timeouts, and explicit failure classification.
//
// Every failure surfaces as one of three types:
//
//   - *NetworkError: connection-level failure (DNS, TCP, reset mid-body)
//   - *TimeoutError: the per-attempt timeout elapsed without a response
//   - *HTTPError: the server answered with a non-2xx status
//
// Network errors, timeouts, and 5xx responses are retried with exponential
// backoff; 4xx responses fail immediately without consuming a retry. After
// retries are exhausted the last error observed is returned, and the caller
// decides whether that is a hard failure or a soft "unavailable" signal.
package netclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout bounds a single attempt when the request doesn't specify
// its own.
const DefaultTimeout = 10 * time.Second

const (
	defaultMaxRetries  = 2
	defaultBackoffBase = 1 * time.Second
)

// NetworkError is a connection-level failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError reports that an attempt exceeded its timeout. The in-flight
// call is aborted; nothing outside that call is cancelled.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %v", e.Timeout)
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.Status)
}

// Retryable reports whether the error may succeed on another attempt:
// connection failures, timeouts, and 5xx responses qualify; 4xx responses do
// not.
func Retryable(err error) bool {
	var netErr *NetworkError
	var toErr *TimeoutError
	var httpErr *HTTPError
	switch {
	case errors.As(err, &netErr), errors.As(err, &toErr):
		return true
	case errors.As(err, &httpErr):
		return httpErr.Status >= 500
	default:
		return false
	}
}

// Request describes one logical HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Timeout bounds each individual attempt. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Response is a completed 2xx response with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client performs HTTP requests with the retry policy above.
type Client struct {
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)
	logger      *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests point this at
// an httptest server's client).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithMaxRetries overrides the retry budget (attempts = retries + 1).
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoffBase overrides the first backoff delay; each subsequent delay
// doubles.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) { c.backoffBase = d }
}

// WithSleep replaces the backoff sleep function so tests can record the
// schedule instead of waiting it out.
func WithSleep(f func(time.Duration)) Option {
	return func(c *Client) { c.sleep = f }
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client with the default policy: 2 retries, backoff starting
// at 1s and doubling.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		sleep:       time.Sleep,
		logger:      log.New(os.Stderr, "[net] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request, retrying per policy. It returns the first 2xx
// response, or the last error observed once retries are exhausted.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var lastErr error
	backoff := c.backoffBase

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Printf("Retrying %s %s in %v (attempt %d/%d)",
				req.Method, req.URL, backoff, attempt+1, c.maxRetries+1)
			c.sleep(backoff)
			backoff *= 2
		}

		resp, err := c.attempt(ctx, req, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, err
		}
		// The caller's context going away means stop, not retry.
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// attempt performs a single bounded attempt and classifies its outcome.
func (c *Client) attempt(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &TimeoutError{Timeout: timeout}
		}
		return nil, &NetworkError{Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &TimeoutError{Timeout: timeout}
		}
		return nil, &NetworkError{Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{Status: httpResp.StatusCode, Body: respBody}
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   respBody,
	}, nil
}
