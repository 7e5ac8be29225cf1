package rainviewer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

// Getter fetches a document body; upstream.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client reads the RainViewer weather-maps catalogue. It implements
// monitor.RadarSource.
type Client struct {
	getter Getter
	url    string
	logger *slog.Logger
}

// NewClient creates a radar catalogue client for the weather-maps.json URL.
func NewClient(getter Getter, url string, logger *slog.Logger) *Client {
	return &Client{getter: getter, url: url, logger: logger}
}

// FetchRadarFrames returns the current radar frame catalogue.
func (c *Client) FetchRadarFrames(ctx context.Context) (domain.RadarFrames, error) {
	body, err := c.getter.Get(ctx, c.url)
	if err != nil {
		return domain.RadarFrames{}, fmt.Errorf("fetch radar frames: %w", err)
	}

	frames, err := domain.ParseRadarFrames(body)
	if err != nil {
		return domain.RadarFrames{}, err
	}

	c.logger.Debug("radar frames fetched", "past", len(frames.Past), "nowcast", len(frames.Nowcast))
	return frames, nil
}
