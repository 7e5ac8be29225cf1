// Package domain models near-term rain alerts for a single geographic point.
//
// # Data Sources
//
// Forecast data comes from the Open-Meteo forecast API
// (https://open-meteo.com/en/docs). A single request returns an hourly series
// as parallel arrays (same index = same hour) and a "current" snapshot:
//
//	hourly:  time, precipitation, precipitation_probability, weather_code
//	current: time, temperature_2m, weather_code, precipitation
//
// Times are local wall-clock strings ("2006-01-02T15:04") in the timezone
// requested by the caller. The response carries utc_offset_seconds, which
// [ParseForecast] uses to anchor them. Values may be JSON null; null or absent
// fields are rejected with [ErrMalformedForecastData] instead of being read as
// zero, so a corrupt response can never look like a dry forecast.
//
// Radar metadata comes from RainViewer
// (https://www.rainviewer.com/api/weather-maps-api.html). It is only used for
// the map overlay and never influences classification.
//
// # Classification
//
// [Classify] turns current conditions plus the hourly series into a [Verdict]:
//
//	Raining  current precipitation > 0 (always wins)
//	Soon     first hour inside the look-ahead window with
//	         precipitation > 0 or probability > threshold
//	Clear    otherwise
//
// The scan stops at the earliest qualifying hour. It does not look for the
// wettest or most probable hour. Window bounds are inclusive at both ends.
// Soon is refined for display into urgent (minutes <= soon threshold) and
// probable; see [Verdict.Level].
//
// # Weather Codes
//
// Weather codes are WMO 4677 present-weather codes as used by Open-Meteo.
// [WeatherCode.Category] buckets them the way the dashboard icons do:
//
//	0–3 clear | 4–49 cloudy | 50–69 rain | 70–79 snow | 80–99 storm
package domain
