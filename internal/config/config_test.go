package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)

	assert.Equal(t, "Las Ceibas, Bahía de Banderas", cfg.LocationName)
	assert.Equal(t, 20.805, cfg.LocationLat)
	assert.Equal(t, -105.296, cfg.LocationLon)
	assert.Equal(t, "America/Mexico_City", cfg.LocationTimezone)
	assert.Empty(t, cfg.LocationQuery)

	assert.Equal(t, 2.0, cfg.LookAheadHours)
	assert.Equal(t, 50, cfg.ProbabilityThreshold)
	assert.Equal(t, 15, cfg.SoonThresholdMinutes)
	assert.Equal(t, domain.DefaultOptions(), cfg.ClassifierOptions())

	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 2, cfg.FetchMaxRetries)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 1, cfg.ForecastDays)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.OpenMeteoURL)
	assert.Equal(t, "https://api.rainviewer.com/public/weather-maps.json", cfg.RainViewerURL)
	assert.True(t, cfg.RadarEnabled)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "rain-alert-verdicts", cfg.KafkaVerdictTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://lluvia.example, https://app.example")
	t.Setenv("LOCATION_NAME", "Bucerías")
	t.Setenv("LOCATION_LAT", "20.756")
	t.Setenv("LOCATION_LON", "-105.334")
	t.Setenv("LOCATION_TIMEZONE", "America/Bahia_Banderas")
	t.Setenv("LOOKAHEAD_HOURS", "3.5")
	t.Setenv("PROBABILITY_THRESHOLD", "40")
	t.Setenv("SOON_THRESHOLD_MINUTES", "10")
	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("FETCH_MAX_RETRIES", "0")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("FORECAST_DAYS", "2")
	t.Setenv("RADAR_ENABLED", "false")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "50")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_VERDICT_TOPIC", "custom-verdicts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://lluvia.example", "https://app.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, domain.Location{Name: "Bucerías", Lat: 20.756, Lon: -105.334, Timezone: "America/Bahia_Banderas"}, cfg.Location())
	assert.Equal(t, domain.Options{LookAheadHours: 3.5, ProbabilityThreshold: 40, SoonThresholdMinutes: 10}, cfg.ClassifierOptions())
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 0, cfg.FetchMaxRetries)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 2, cfg.ForecastDays)
	assert.False(t, cfg.RadarEnabled)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 50, cfg.MapboxCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-verdicts", cfg.KafkaVerdictTopic)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"LOCATION_LAT", "north"},
		{"LOCATION_LAT", "91"},
		{"LOCATION_LON", "-181"},
		{"LOCATION_TIMEZONE", " "},
		{"LOOKAHEAD_HOURS", "0"},
		{"PROBABILITY_THRESHOLD", "150"},
		{"PROBABILITY_THRESHOLD", "half"},
		{"SOON_THRESHOLD_MINUTES", "-1"},
		{"POLL_INTERVAL", "1s"},
		{"POLL_INTERVAL", "often"},
		{"FETCH_MAX_RETRIES", "11"},
		{"FORECAST_DAYS", "17"},
		{"OPENMETEO_BASE_URL", "not a url"},
		{"RADAR_ENABLED", "maybe"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"MAPBOX_CACHE_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.LocationName, "name is left for reverse geocoding")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
