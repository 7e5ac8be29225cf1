package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

const (
	hourlyFields  = "precipitation,precipitation_probability,weather_code"
	currentFields = "temperature_2m,weather_code,precipitation"
)

// Getter fetches a document body; upstream.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client fetches hourly forecasts from the Open-Meteo forecast API.
// It implements monitor.ForecastSource.
type Client struct {
	getter  Getter
	baseURL string
	days    int
	logger  *slog.Logger
}

// NewClient creates a forecast client for baseURL requesting days forecast days.
func NewClient(getter Getter, baseURL string, days int, logger *slog.Logger) *Client {
	return &Client{
		getter:  getter,
		baseURL: baseURL,
		days:    days,
		logger:  logger,
	}
}

// FetchForecast retrieves and parses the forecast for loc. A response whose
// hourly series is rejected still returns its current conditions alongside the
// error.
func (c *Client) FetchForecast(ctx context.Context, loc domain.Location) (domain.Forecast, error) {
	u, err := c.forecastURL(loc)
	if err != nil {
		return domain.Forecast{}, err
	}

	body, err := c.getter.Get(ctx, u)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("fetch forecast: %w", err)
	}

	forecast, err := domain.ParseForecast(body)
	if err != nil {
		c.logger.Warn("open-meteo response rejected", "error", err, "bytes", len(body))
		return forecast, err
	}

	c.logger.Debug("forecast fetched",
		"hours", len(forecast.Hourly),
		"timezone", forecast.Timezone,
		"current_precipitation", forecast.Current.PrecipitationAmount,
	)
	return forecast, nil
}

func (c *Client) forecastURL(loc domain.Location) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse open-meteo base url: %w", err)
	}

	params := u.Query()
	params.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	params.Set("hourly", hourlyFields)
	params.Set("current", currentFields)
	params.Set("forecast_days", strconv.Itoa(c.days))
	if loc.Timezone != "" {
		params.Set("timezone", loc.Timezone)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}
