package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rain_alert"

// Metrics holds the Prometheus counters, histograms, and gauges for the rain monitor.
type Metrics struct {
	Polls           *prometheus.CounterVec // labels: outcome={success,fetch_error,malformed}
	Verdicts        *prometheus.CounterVec // labels: kind={raining,soon,clear}
	MinutesUntil    prometheus.Gauge
	LastSuccess     prometheus.Gauge
	MonitorRunning  prometheus.Gauge
	RadarEnabled    prometheus.Gauge
	RefreshDuration prometheus.Histogram

	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source={openmeteo,rainviewer}, outcome={success,error,status,circuit_open}
	UpstreamDuration *prometheus.HistogramVec // labels: source

	// Verdict publishing metrics.
	VerdictsPublished prometheus.Counter
	PublishErrors     prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: method={forward,reverse}, result={hit,miss}
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Polls,
		m.Verdicts,
		m.MinutesUntil,
		m.LastSuccess,
		m.MonitorRunning,
		m.RadarEnabled,
		m.RefreshDuration,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.VerdictsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verdicts produced by kind.",
		}, []string{"kind"}),
		MinutesUntil: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "minutes_until_rain",
			Help:      "Minutes until the qualifying window for a soon verdict, -1 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 when the polling loop is active, 0 when shut down.",
		}),
		RadarEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "radar_enabled",
			Help:      "1 when radar frame polling is enabled, 0 otherwise.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-classify cycle including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		VerdictsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_published_total",
			Help:      "Verdict change events written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed verdict event writes.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
	}
}
