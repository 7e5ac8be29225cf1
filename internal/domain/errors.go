package domain

import "errors"

var (
	// ErrMalformedForecastData reports a missing or non-numeric value in the
	// forecast series or current-conditions snapshot.
	ErrMalformedForecastData = errors.New("malformed forecast data")

	// ErrMalformedHourlySeries marks a forecast whose current conditions parsed
	// but whose hourly series did not. It always accompanies
	// ErrMalformedForecastData.
	ErrMalformedHourlySeries = errors.New("malformed hourly series")

	// ErrInvalidOptions reports classifier options outside their valid range.
	ErrInvalidOptions = errors.New("invalid classifier options")

	// ErrMalformedRadarData reports an unusable radar metadata payload.
	ErrMalformedRadarData = errors.New("malformed radar data")
)
