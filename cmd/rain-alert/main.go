package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/rain-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rain-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/mapbox"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/rainviewer"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/upstream"
	"github.com/couchcryptid/rain-alert-service/internal/config"
	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/monitor"
	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}
	location := domain.ResolveLocation(ctx, cfg.Location(), cfg.LocationQuery, geocoder, logger)
	logger.Info("monitoring location",
		"name", location.Name,
		"lat", location.Lat,
		"lon", location.Lon,
		"timezone", location.Timezone,
	)

	forecastFetcher := upstream.NewFetcher("openmeteo", cfg.UpstreamTimeout, metrics)
	forecasts := openmeteo.NewClient(forecastFetcher, cfg.OpenMeteoURL, cfg.ForecastDays, logger)

	var radar monitor.RadarSource
	if cfg.RadarEnabled {
		radarFetcher := upstream.NewFetcher("rainviewer", cfg.UpstreamTimeout, metrics)
		radar = rainviewer.NewClient(radarFetcher, cfg.RainViewerURL, logger)
		metrics.RadarEnabled.Set(1)
	}

	var (
		publisher monitor.VerdictPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka verdict events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaVerdictTopic)
	}

	mon, err := monitor.New(forecasts, radar, publisher, monitor.Options{
		Location:     location,
		Classifier:   cfg.ClassifierOptions(),
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.FetchMaxRetries,
	}, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		logger.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.CORSAllowedOrigins, mon, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start polling loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := mon.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("monitor did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
