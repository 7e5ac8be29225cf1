// Package upstream fetches documents from the public weather APIs through a
// circuit breaker, so a failing provider is skipped quickly instead of holding
// every poll cycle until its timeout.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

const (
	maxBodyBytes     = 4 << 20
	defaultUserAgent = "rain-alert-service/1.0"
)

// ErrCircuitOpen is returned while the breaker rejects calls to a failing provider.
var ErrCircuitOpen = errors.New("upstream circuit open")

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Source, e.StatusCode, e.Body)
}

// countsAsFailure reports whether the response should count against the breaker.
// Client errors other than 429 mean the request is wrong, not the provider.
func (e *StatusError) countsAsFailure() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Fetcher performs GET requests for one provider.
type Fetcher struct {
	source     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	userAgent  string
	metrics    *observability.Metrics
}

// Option configures a Fetcher.
type Option func(*settings)

type settings struct {
	httpClient  *http.Client
	tripAfter   uint32
	openTimeout time.Duration
}

// WithHTTPClient replaces the default client built from the timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithBreaker sets how many consecutive failures open the circuit and how long it stays open.
func WithBreaker(tripAfter uint32, openTimeout time.Duration) Option {
	return func(s *settings) {
		s.tripAfter = tripAfter
		s.openTimeout = openTimeout
	}
}

// NewFetcher creates a Fetcher labelled source in logs and metrics.
func NewFetcher(source string, timeout time.Duration, metrics *observability.Metrics, opts ...Option) *Fetcher {
	s := settings{
		httpClient:  &http.Client{Timeout: timeout},
		tripAfter:   5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.tripAfter
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && !se.countsAsFailure()
		},
	})

	return &Fetcher{
		source:     source,
		httpClient: s.httpClient,
		breaker:    cb,
		userAgent:  defaultUserAgent,
		metrics:    metrics,
	}
}

// Get fetches url and returns the response body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.do(ctx, url)
	})
	f.metrics.UpstreamDuration.WithLabelValues(f.source).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.metrics.UpstreamRequests.WithLabelValues(f.source, "circuit_open").Inc()
			return nil, fmt.Errorf("%s: %w", f.source, ErrCircuitOpen)
		}
		var se *StatusError
		if errors.As(err, &se) {
			f.metrics.UpstreamRequests.WithLabelValues(f.source, "status").Inc()
			return nil, err
		}
		f.metrics.UpstreamRequests.WithLabelValues(f.source, "error").Inc()
		return nil, err
	}

	f.metrics.UpstreamRequests.WithLabelValues(f.source, "success").Inc()
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", f.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", f.source, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Source: f.source, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
