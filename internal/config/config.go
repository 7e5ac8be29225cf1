package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
// The env tag names the variable each field is read from and is used in
// validation errors.
type Config struct {
	HTTPAddr           string        `env:"HTTP_ADDR" validate:"required"`
	LogLevel           string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat          string        `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" validate:"min=1"`

	// Monitored point.
	LocationName     string  `env:"LOCATION_NAME"`
	LocationLat      float64 `env:"LOCATION_LAT" validate:"gte=-90,lte=90"`
	LocationLon      float64 `env:"LOCATION_LON" validate:"gte=-180,lte=180"`
	LocationQuery    string  `env:"LOCATION_QUERY"`
	LocationTimezone string  `env:"LOCATION_TIMEZONE" validate:"required"`

	// Classifier tuning.
	LookAheadHours       float64 `env:"LOOKAHEAD_HOURS" validate:"gt=0,lte=48"`
	ProbabilityThreshold int     `env:"PROBABILITY_THRESHOLD" validate:"gte=0,lte=100"`
	SoonThresholdMinutes int     `env:"SOON_THRESHOLD_MINUTES" validate:"gte=0"`

	// Polling.
	PollInterval    time.Duration `env:"POLL_INTERVAL" validate:"gte=10s"`
	FetchMaxRetries int           `env:"FETCH_MAX_RETRIES" validate:"gte=0,lte=10"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" validate:"gt=0"`
	ForecastDays    int           `env:"FORECAST_DAYS" validate:"gte=1,lte=16"`
	OpenMeteoURL    string        `env:"OPENMETEO_BASE_URL" validate:"required,url"`
	RainViewerURL   string        `env:"RAINVIEWER_URL" validate:"required,url"`
	RadarEnabled    bool          `env:"RADAR_ENABLED"`

	// Mapbox geocoding configuration.
	MapboxToken     string        `env:"MAPBOX_TOKEN" validate:"required_if=MapboxEnabled true"`
	MapboxEnabled   bool          `env:"MAPBOX_ENABLED"`
	MapboxTimeout   time.Duration `env:"MAPBOX_TIMEOUT" validate:"gt=0"`
	MapboxCacheSize int           `env:"MAPBOX_CACHE_SIZE" validate:"gt=0"`

	// Kafka verdict events.
	KafkaEnabled      bool     `env:"KAFKA_ENABLED"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" validate:"required_if=KafkaEnabled true"`
	KafkaVerdictTopic string   `env:"KAFKA_VERDICT_TOPIC" validate:"required_if=KafkaEnabled true"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	mapboxToken := os.Getenv("MAPBOX_TOKEN")

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		LocationName:     os.Getenv("LOCATION_NAME"),
		LocationLat:      p.float("LOCATION_LAT", 20.805),
		LocationLon:      p.float("LOCATION_LON", -105.296),
		LocationQuery:    os.Getenv("LOCATION_QUERY"),
		LocationTimezone: strings.TrimSpace(sharedcfg.EnvOrDefault("LOCATION_TIMEZONE", "America/Mexico_City")),

		LookAheadHours:       p.float("LOOKAHEAD_HOURS", domain.DefaultLookAheadHours),
		ProbabilityThreshold: p.int("PROBABILITY_THRESHOLD", domain.DefaultProbabilityThreshold),
		SoonThresholdMinutes: p.int("SOON_THRESHOLD_MINUTES", domain.DefaultSoonThresholdMinutes),

		PollInterval:    p.duration("POLL_INTERVAL", 5*time.Minute),
		FetchMaxRetries: p.int("FETCH_MAX_RETRIES", 2),
		UpstreamTimeout: p.duration("UPSTREAM_TIMEOUT", 10*time.Second),
		ForecastDays:    p.int("FORECAST_DAYS", 1),
		OpenMeteoURL:    sharedcfg.EnvOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		RainViewerURL:   sharedcfg.EnvOrDefault("RAINVIEWER_URL", "https://api.rainviewer.com/public/weather-maps.json"),
		RadarEnabled:    p.bool("RADAR_ENABLED", true),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   p.bool("MAPBOX_ENABLED", mapboxToken != ""),
		MapboxTimeout:   p.duration("MAPBOX_TIMEOUT", 5*time.Second),
		MapboxCacheSize: p.int("MAPBOX_CACHE_SIZE", 1000),

		KafkaEnabled:      p.bool("KAFKA_ENABLED", false),
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaVerdictTopic: sharedcfg.EnvOrDefault("KAFKA_VERDICT_TOPIC", "rain-alert-verdicts"),
	}
	if cfg.LocationName == "" && !cfg.MapboxEnabled {
		cfg.LocationName = "Las Ceibas, Bahía de Banderas"
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ClassifierOptions returns the classifier tuning carried by the config.
func (c *Config) ClassifierOptions() domain.Options {
	return domain.Options{
		LookAheadHours:       c.LookAheadHours,
		ProbabilityThreshold: c.ProbabilityThreshold,
		SoonThresholdMinutes: c.SoonThresholdMinutes,
	}
}

// Location returns the configured monitored point before any geocoding.
func (c *Config) Location() domain.Location {
	return domain.Location{
		Name:     c.LocationName,
		Lat:      c.LocationLat,
		Lon:      c.LocationLon,
		Timezone: c.LocationTimezone,
	}
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" || fe.Tag() == "required_if" {
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("invalid %s: must satisfy %s", fe.Field(), constraint(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// parser accumulates the first parse failure so Load can read every variable
// in one expression.
type parser struct {
	err error
}

func (p *parser) fail(key string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s", key)
	}
}

func (p *parser) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func (p *parser) int(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
