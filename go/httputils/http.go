// Package httputils provides an HTTP client transport with exponential
// backoff retries on transient status codes and transport errors, reused by
// both the Blob Store Gateway and the Catalog Gateway.
package httputils

import (
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// SCHEME_AT_LOAD_BALANCER_HEADER is set by the load balancer to the
	// original scheme of the inbound request, used by HealthzAndHTTPS to
	// decide whether to redirect.
	SCHEME_AT_LOAD_BALANCER_HEADER = "X-Forwarded-Proto"

	// INITIAL_INTERVAL is the default first backoff delay.
	INITIAL_INTERVAL = 2 * time.Second

	// RANDOMIZATION_FACTOR jitters each backoff interval by this fraction.
	RANDOMIZATION_FACTOR = 0.5

	// BACKOFF_MULTIPLIER is the exponential growth factor between retries.
	BACKOFF_MULTIPLIER = 2.0

	// MAX_INTERVAL caps the backoff delay.
	MAX_INTERVAL = 30 * time.Second

	// MAX_ELAPSED_TIME bounds total retry time before giving up.
	MAX_ELAPSED_TIME = 90 * time.Second
)

// BackOffConfig configures NewConfiguredBackOffTransport.
type BackOffConfig struct {
	initialInterval     time.Duration
	maxInterval         time.Duration
	maxElapsedTime      time.Duration
	randomizationFactor float64
	backOffMultiplier   float64
	// maxRetries caps the number of retries by count rather than elapsed
	// time when non-zero, overriding maxElapsedTime.
	maxRetries uint64
}

// NewFixedBackOffConfig is the exact retry policy spec.md §4.1/§4.2
// mandate for the Blob Store and Catalog gateways: a fixed 2-second
// interval, capped at 3 retries (4 attempts total) regardless of elapsed
// time, so "returns 408, 429, 500, 500 then 200" deterministically
// completes in exactly 4 attempts.
func NewFixedBackOffConfig() *BackOffConfig {
	return &BackOffConfig{
		initialInterval:     2 * time.Second,
		maxInterval:         2 * time.Second,
		randomizationFactor: 0,
		backOffMultiplier:   1,
		maxRetries:          3,
	}
}

// NewBackOffConfig returns the default retry policy used by
// NewBackOffTransport: transient failures are retried with jittered
// exponential backoff until MAX_ELAPSED_TIME has passed, with no cap on the
// number of retries. The gateways use NewFixedBackOffConfig instead.
func NewBackOffConfig() *BackOffConfig {
	return &BackOffConfig{
		initialInterval:     INITIAL_INTERVAL,
		maxInterval:         MAX_INTERVAL,
		maxElapsedTime:      MAX_ELAPSED_TIME,
		randomizationFactor: RANDOMIZATION_FACTOR,
		backOffMultiplier:   BACKOFF_MULTIPLIER,
	}
}

func (c *BackOffConfig) newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = c.maxElapsedTime
	b.RandomizationFactor = c.randomizationFactor
	b.Multiplier = c.backOffMultiplier
	return b
}

func (c *BackOffConfig) build() backoff.BackOff {
	b := c.newExponentialBackOff()
	if c.maxRetries > 0 {
		return backoff.WithMaxRetries(b, c.maxRetries)
	}
	return b
}

// BackOffTransport is an http.RoundTripper that retries transient failures
// (transport errors and 408/429/5xx responses) with exponential backoff,
// honoring request context cancellation between attempts.
type BackOffTransport struct {
	config  *BackOffConfig
	wrapped http.RoundTripper
}

// NewConfiguredBackOffTransport wraps wrapped with retry behavior per config.
func NewConfiguredBackOffTransport(config *BackOffConfig, wrapped http.RoundTripper) *BackOffTransport {
	return &BackOffTransport{config: config, wrapped: wrapped}
}

// NewBackOffTransport wraps wrapped with the default retry policy.
func NewBackOffTransport(wrapped http.RoundTripper) *BackOffTransport {
	return NewConfiguredBackOffTransport(NewBackOffConfig(), wrapped)
}

func isRetriableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// RoundTrip implements http.RoundTripper.
func (t *BackOffTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	op := func() error {
		var err error
		resp, err = t.wrapped.RoundTrip(req)
		if err != nil {
			return err
		}
		if isRetriableStatus(resp.StatusCode) {
			ReadAndClose(resp.Body)
			return &retriableStatusError{code: resp.StatusCode}
		}
		return nil
	}
	b := backoff.WithContext(t.config.build(), req.Context())
	err := backoff.Retry(op, b)
	if rse, ok := err.(*retriableStatusError); ok {
		_ = rse
		// Retries exhausted; return the last response received so the
		// caller can inspect the final (non-2xx) status.
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type retriableStatusError struct{ code int }

func (e *retriableStatusError) Error() string { return "retriable status code" }

// Response2xxOnly wraps c so that any non-2xx response is converted into an
// error, matching net/http's own treatment of transport-level failures.
func Response2xxOnly(c *http.Client) *http.Client {
	wrapped := c.Transport
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	cp := *c
	cp.Transport = &response2xxTransport{wrapped: wrapped}
	return &cp
}

type response2xxTransport struct{ wrapped http.RoundTripper }

func (t *response2xxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.wrapped.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ReadAndClose(resp.Body)
		return nil, &nonOKStatusError{code: resp.StatusCode}
	}
	return resp, nil
}

type nonOKStatusError struct{ code int }

func (e *nonOKStatusError) Error() string { return "httputils: non-2xx response" }

// ReadAndClose drains and closes r, discarding errors. Call this on any
// response body that will not otherwise be fully read, so the underlying
// connection can be reused.
func ReadAndClose(r io.ReadCloser) {
	if r == nil {
		return
	}
	_, _ = io.Copy(io.Discard, r)
	_ = r.Close()
}
