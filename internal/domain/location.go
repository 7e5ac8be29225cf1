package domain

import (
	"context"
	"log/slog"
)

// Location is the monitored point.
type Location struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	// ForwardGeocode converts a free-form place query to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// ResolveLocation fills in the monitored point using the geocoder.
// A non-empty query is forward-geocoded to coordinates, and a missing name is
// reverse-geocoded from the coordinates. If geocoder is nil or a lookup fails
// the configured values are kept.
func ResolveLocation(ctx context.Context, loc Location, query string, geocoder Geocoder, logger *slog.Logger) Location {
	if geocoder == nil {
		return loc
	}

	if query != "" {
		result, err := geocoder.ForwardGeocode(ctx, query)
		switch {
		case err != nil:
			logger.Warn("forward geocoding failed, using configured coordinates",
				"query", query,
				"error", err,
			)
		case result.Lat != 0 || result.Lon != 0:
			loc.Lat = result.Lat
			loc.Lon = result.Lon
			if loc.Name == "" {
				loc.Name = placeLabel(result)
			}
			return loc
		default:
			logger.Warn("forward geocoding returned no match", "query", query)
		}
	}

	if loc.Name != "" {
		return loc
	}

	result, err := geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", loc.Lat,
			"lon", loc.Lon,
			"error", err,
		)
		return loc
	}
	loc.Name = placeLabel(result)
	return loc
}

func placeLabel(r GeocodingResult) string {
	if r.FormattedAddress != "" {
		return r.FormattedAddress
	}
	return r.PlaceName
}
