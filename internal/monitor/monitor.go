// Package monitor polls the forecast and radar providers on a fixed interval,
// classifies the result and holds the latest snapshot for the HTTP layer.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// ErrNotLoaded is returned by CheckReadiness until the first refresh succeeds.
var ErrNotLoaded = errors.New("loading: no forecast classified yet")

// ForecastSource fetches the forecast for a location.
type ForecastSource interface {
	FetchForecast(ctx context.Context, loc domain.Location) (domain.Forecast, error)
}

// RadarSource fetches the radar frame catalogue.
type RadarSource interface {
	FetchRadarFrames(ctx context.Context) (domain.RadarFrames, error)
}

// VerdictPublisher is notified when the verdict changes.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, snap Snapshot) error
}

// Options configures a Monitor.
type Options struct {
	Location     domain.Location
	Classifier   domain.Options
	PollInterval time.Duration
	// MaxRetries is the number of extra forecast attempts after a failure.
	MaxRetries int
	// RefreshTimeout bounds one refresh including retries. Defaults to PollInterval.
	RefreshTimeout time.Duration
}

// Snapshot is one classified forecast.
type Snapshot struct {
	ID           string
	Location     domain.Location
	Verdict      domain.Verdict
	Current      domain.CurrentConditions
	Hourly       []domain.HourlyForecastPoint
	Radar        *domain.RadarFrames
	ClassifiedAt time.Time
}

// Status describes the freshness of the held snapshot.
type Status struct {
	Loaded      bool
	Stale       bool // the last refresh failed and the snapshot is from an earlier one
	LastError   string
	LastAttempt time.Time
}

// Monitor owns the refresh loop and the latest snapshot.
type Monitor struct {
	forecasts ForecastSource
	radar     RadarSource
	publisher VerdictPublisher
	opts      Options
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	flight singleflight.Group

	mu     sync.RWMutex
	snap   Snapshot
	status Status
}

// New creates a Monitor. radar and publisher may be nil.
func New(forecasts ForecastSource, radar RadarSource, publisher VerdictPublisher, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Monitor, error) {
	if forecasts == nil {
		return nil, errors.New("monitor: forecast source is required")
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("monitor: poll interval must be positive, got %s", opts.PollInterval)
	}
	if err := opts.Classifier.Validate(); err != nil {
		return nil, err
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = opts.PollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		forecasts: forecasts,
		radar:     radar,
		publisher: publisher,
		opts:      opts,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Location returns the monitored point.
func (m *Monitor) Location() domain.Location {
	return m.opts.Location
}

// ClassifierOptions returns the classifier tuning in use.
func (m *Monitor) ClassifierOptions() domain.Options {
	return m.opts.Classifier
}

// RadarEnabled reports whether a radar source is configured.
func (m *Monitor) RadarEnabled() bool {
	return m.radar != nil
}

// CheckReadiness returns nil once a snapshot has been classified.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.status.Loaded {
		return ErrNotLoaded
	}
	return nil
}

// Latest returns the held snapshot and its status. The snapshot is the zero
// value until Status.Loaded is true.
func (m *Monitor) Latest() (Snapshot, Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap, m.status
}

// Run refreshes immediately and then every PollInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		"location", m.opts.Location.Name,
		"poll_interval", m.opts.PollInterval,
		"radar", m.radar != nil,
	)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	ticker := m.clock.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	_, _ = m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			_, _ = m.Refresh(ctx)
		}
	}
}

// Refresh fetches, classifies and stores a new snapshot. Concurrent calls share
// one upstream round trip, which runs detached from ctx and is bounded by
// RefreshTimeout: a caller giving up returns ctx's error and leaves the held
// snapshot and status untouched. On an upstream failure the previous snapshot
// is kept and marked stale, and the error is returned.
func (m *Monitor) Refresh(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		snap, _ := m.Latest()
		return snap, err
	}

	ch := m.flight.DoChan("refresh", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.RefreshTimeout)
		defer cancel()
		return m.refresh(fctx)
	})

	select {
	case <-ctx.Done():
		snap, _ := m.Latest()
		return snap, ctx.Err()
	case res := <-ch:
		snap, _ := res.Val.(Snapshot)
		return snap, res.Err
	}
}

func (m *Monitor) refresh(ctx context.Context) (Snapshot, error) {
	start := m.clock.Now()
	defer func() {
		m.metrics.RefreshDuration.Observe(m.clock.Since(start).Seconds())
	}()

	forecast, radar, err := m.fetch(ctx)
	if err != nil {
		if !rainingDespite(forecast, err) {
			return m.fail(start, err)
		}
		m.logger.Warn("hourly series rejected, current conditions report rain", "error", err)
		forecast.Hourly = nil
	}

	now := m.clock.Now()
	verdict, err := domain.Classify(forecast.Current, forecast.Hourly, now, m.opts.Classifier)
	if err != nil {
		return m.fail(start, err)
	}

	snap := Snapshot{
		ID:           uuid.NewString(),
		Location:     m.opts.Location,
		Verdict:      verdict,
		Current:      forecast.Current,
		Hourly:       forecast.Hourly,
		Radar:        radar,
		ClassifiedAt: now,
	}

	m.mu.Lock()
	prev, hadPrev := m.snap, m.status.Loaded
	if snap.Radar == nil && hadPrev {
		snap.Radar = prev.Radar
	}
	m.snap = snap
	m.status = Status{Loaded: true, LastAttempt: start}
	m.mu.Unlock()

	m.recordVerdict(snap)

	if !hadPrev || !prev.Verdict.Equal(verdict) {
		m.logger.Info("verdict changed",
			"kind", verdict.Kind,
			"level", verdict.Level(m.opts.Classifier.SoonThresholdMinutes),
			"minutes_until", verdict.MinutesUntil,
			"precipitation_mm", verdict.PrecipitationAmount,
		)
		m.publish(ctx, snap)
	}
	return snap, nil
}

// fetch retrieves the forecast (with retries) and the radar frames concurrently.
// A radar failure only yields a nil catalogue.
func (m *Monitor) fetch(ctx context.Context) (domain.Forecast, *domain.RadarFrames, error) {
	var (
		forecast domain.Forecast
		radar    *domain.RadarFrames
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		forecast, err = m.fetchForecast(gctx)
		return err
	})
	if m.radar != nil {
		g.Go(func() error {
			frames, err := m.radar.FetchRadarFrames(gctx)
			if err != nil {
				if gctx.Err() == nil {
					m.logger.Warn("radar refresh failed, keeping previous frames", "error", err)
				}
				return nil
			}
			radar = &frames
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return forecast, nil, err
	}
	return forecast, radar, nil
}

// rainingDespite reports whether err only rejected the hourly series of a
// forecast whose valid current conditions already show rain.
func rainingDespite(forecast domain.Forecast, err error) bool {
	return errors.Is(err, domain.ErrMalformedHourlySeries) && forecast.Current.PrecipitationAmount > 0
}

func (m *Monitor) fetchForecast(ctx context.Context) (domain.Forecast, error) {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		forecast, err := m.forecasts.FetchForecast(ctx, m.opts.Location)
		if err == nil {
			return forecast, nil
		}
		if errors.Is(err, domain.ErrMalformedForecastData) {
			return forecast, err
		}
		if attempt >= m.opts.MaxRetries || ctx.Err() != nil {
			return domain.Forecast{}, err
		}

		m.logger.Warn("forecast fetch failed, retrying",
			"error", err,
			"attempt", attempt+1,
			"backoff", backoff,
		)
		if !sleepWithContext(ctx, m.clock, backoff) {
			return domain.Forecast{}, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (m *Monitor) fail(attempt time.Time, err error) (Snapshot, error) {
	if errors.Is(err, context.Canceled) {
		snap, _ := m.Latest()
		return snap, err
	}

	outcome := "fetch_error"
	if errors.Is(err, domain.ErrMalformedForecastData) {
		outcome = "malformed"
	}
	m.metrics.Polls.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.status.Stale = m.status.Loaded
	m.status.LastError = err.Error()
	m.status.LastAttempt = attempt
	prev := m.snap
	m.mu.Unlock()

	m.logger.Error("refresh failed", "error", err, "outcome", outcome, "stale", prev.ID != "")
	return prev, err
}

func (m *Monitor) recordVerdict(snap Snapshot) {
	m.metrics.Polls.WithLabelValues("success").Inc()
	m.metrics.Verdicts.WithLabelValues(string(snap.Verdict.Kind)).Inc()
	m.metrics.LastSuccess.Set(float64(snap.ClassifiedAt.Unix()))
	if snap.Verdict.Kind == domain.KindSoon {
		m.metrics.MinutesUntil.Set(float64(snap.Verdict.MinutesUntil))
	} else {
		m.metrics.MinutesUntil.Set(-1)
	}
}

func (m *Monitor) publish(ctx context.Context, snap Snapshot) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishVerdict(ctx, snap); err != nil {
		m.metrics.PublishErrors.Inc()
		m.logger.Error("publish verdict failed", "error", err, "snapshot_id", snap.ID)
		return
	}
	m.metrics.VerdictsPublished.Inc()
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
