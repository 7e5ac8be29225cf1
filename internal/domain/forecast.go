package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// openMeteoTimeLayout is the local wall-clock format Open-Meteo uses for
// timestamps when a timezone is requested.
const openMeteoTimeLayout = "2006-01-02T15:04"

// HourlyForecastPoint is one hour of the forecast series.
type HourlyForecastPoint struct {
	Timestamp                time.Time   `json:"time"`
	PrecipitationAmount      float64     `json:"precipitation_mm"`
	PrecipitationProbability int         `json:"precipitation_probability"`
	WeatherCode              WeatherCode `json:"weather_code"`
}

// Validate rejects values a well-formed upstream response cannot contain.
func (p HourlyForecastPoint) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing time", ErrMalformedForecastData)
	}
	if !validAmount(p.PrecipitationAmount) {
		return fmt.Errorf("%w: precipitation %v", ErrMalformedForecastData, p.PrecipitationAmount)
	}
	if p.PrecipitationProbability < 0 || p.PrecipitationProbability > 100 {
		return fmt.Errorf("%w: precipitation probability %d", ErrMalformedForecastData, p.PrecipitationProbability)
	}
	return nil
}

// CurrentConditions is the "current" snapshot sampled at ReferenceTime.
type CurrentConditions struct {
	Temperature         float64     `json:"temperature_c"`
	WeatherCode         WeatherCode `json:"weather_code"`
	PrecipitationAmount float64     `json:"precipitation_mm"`
	ReferenceTime       time.Time   `json:"time"`
}

// Validate rejects non-numeric temperature or precipitation values.
func (c CurrentConditions) Validate() error {
	if math.IsNaN(c.Temperature) || math.IsInf(c.Temperature, 0) {
		return fmt.Errorf("%w: current temperature %v", ErrMalformedForecastData, c.Temperature)
	}
	if !validAmount(c.PrecipitationAmount) {
		return fmt.Errorf("%w: current precipitation %v", ErrMalformedForecastData, c.PrecipitationAmount)
	}
	return nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Forecast is a parsed forecast response for one location.
type Forecast struct {
	Latitude  float64               `json:"latitude"`
	Longitude float64               `json:"longitude"`
	Timezone  string                `json:"timezone"`
	Current   CurrentConditions     `json:"current"`
	Hourly    []HourlyForecastPoint `json:"hourly"`
}

// Upcoming returns up to n hourly points at or after the wall-clock hour
// containing now in the forecast's own zone.
func (f Forecast) Upcoming(now time.Time, n int) []HourlyForecastPoint {
	if len(f.Hourly) > 0 {
		now = now.In(f.Hourly[0].Timestamp.Location())
	}
	start := startOfHour(now)
	out := make([]HourlyForecastPoint, 0, n)
	for _, p := range f.Hourly {
		if len(out) == n {
			break
		}
		if p.Timestamp.Before(start) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func startOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// rawForecast mirrors the Open-Meteo response. Pointers distinguish JSON null
// and absent fields from genuine zeros.
type rawForecast struct {
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	Timezone         string        `json:"timezone"`
	UTCOffsetSeconds *int          `json:"utc_offset_seconds"`
	Current          *rawCurrent   `json:"current"`
	Hourly           *rawHourly    `json:"hourly"`
	Error            bool          `json:"error"`
	Reason           string        `json:"reason"`
	HourlyUnits      rawHourlyUnit `json:"hourly_units"`
}

type rawCurrent struct {
	Time          *string  `json:"time"`
	Temperature   *float64 `json:"temperature_2m"`
	WeatherCode   *int     `json:"weather_code"`
	Precipitation *float64 `json:"precipitation"`
}

type rawHourly struct {
	Time                     []*string  `json:"time"`
	Precipitation            []*float64 `json:"precipitation"`
	PrecipitationProbability []*int     `json:"precipitation_probability"`
	WeatherCode              []*int     `json:"weather_code"`
}

type rawHourlyUnit struct {
	Precipitation string `json:"precipitation"`
}

// ParseForecast decodes an Open-Meteo forecast response. Every failure wraps
// ErrMalformedForecastData and names the offending field. When only the hourly
// series is unusable the error also wraps ErrMalformedHourlySeries and the
// returned Forecast carries the parsed current conditions with no hourly points.
func ParseForecast(data []byte) (Forecast, error) {
	var raw rawForecast
	if err := json.Unmarshal(data, &raw); err != nil {
		return Forecast{}, fmt.Errorf("%w: %w", ErrMalformedForecastData, err)
	}
	if raw.Error {
		return Forecast{}, fmt.Errorf("%w: upstream error: %s", ErrMalformedForecastData, raw.Reason)
	}
	if raw.UTCOffsetSeconds == nil {
		return Forecast{}, fmt.Errorf("%w: missing utc_offset_seconds", ErrMalformedForecastData)
	}
	if u := raw.HourlyUnits.Precipitation; u != "" && u != "mm" {
		return Forecast{}, fmt.Errorf("%w: hourly precipitation unit %q", ErrMalformedForecastData, u)
	}
	loc := zoneFor(raw.Timezone, *raw.UTCOffsetSeconds)

	current, err := parseCurrent(raw.Current, loc)
	if err != nil {
		return Forecast{}, err
	}
	f := Forecast{
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Timezone:  raw.Timezone,
		Current:   current,
	}
	f.Hourly, err = parseHourly(raw.Hourly, loc)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrMalformedHourlySeries, err)
	}
	return f, nil
}

func zoneFor(name string, offsetSeconds int) *time.Location {
	if name == "" {
		name = "UTC"
	}
	return time.FixedZone(name, offsetSeconds)
}

func parseCurrent(c *rawCurrent, loc *time.Location) (CurrentConditions, error) {
	if c == nil {
		return CurrentConditions{}, fmt.Errorf("%w: missing current", ErrMalformedForecastData)
	}
	switch {
	case c.Time == nil:
		return CurrentConditions{}, fmt.Errorf("%w: missing current.time", ErrMalformedForecastData)
	case c.Temperature == nil:
		return CurrentConditions{}, fmt.Errorf("%w: missing current.temperature_2m", ErrMalformedForecastData)
	case c.WeatherCode == nil:
		return CurrentConditions{}, fmt.Errorf("%w: missing current.weather_code", ErrMalformedForecastData)
	case c.Precipitation == nil:
		return CurrentConditions{}, fmt.Errorf("%w: missing current.precipitation", ErrMalformedForecastData)
	}

	ts, err := time.ParseInLocation(openMeteoTimeLayout, *c.Time, loc)
	if err != nil {
		return CurrentConditions{}, fmt.Errorf("%w: current.time %q", ErrMalformedForecastData, *c.Time)
	}

	cur := CurrentConditions{
		Temperature:         *c.Temperature,
		WeatherCode:         WeatherCode(*c.WeatherCode),
		PrecipitationAmount: *c.Precipitation,
		ReferenceTime:       ts,
	}
	if err := cur.Validate(); err != nil {
		return CurrentConditions{}, err
	}
	return cur, nil
}

func parseHourly(h *rawHourly, loc *time.Location) ([]HourlyForecastPoint, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: missing hourly", ErrMalformedForecastData)
	}
	switch {
	case h.Time == nil:
		return nil, fmt.Errorf("%w: missing hourly.time", ErrMalformedForecastData)
	case h.Precipitation == nil:
		return nil, fmt.Errorf("%w: missing hourly.precipitation", ErrMalformedForecastData)
	case h.PrecipitationProbability == nil:
		return nil, fmt.Errorf("%w: missing hourly.precipitation_probability", ErrMalformedForecastData)
	case h.WeatherCode == nil:
		return nil, fmt.Errorf("%w: missing hourly.weather_code", ErrMalformedForecastData)
	}

	n := len(h.Time)
	if len(h.Precipitation) != n || len(h.PrecipitationProbability) != n || len(h.WeatherCode) != n {
		return nil, fmt.Errorf("%w: hourly arrays differ in length (time=%d precipitation=%d probability=%d weather_code=%d)",
			ErrMalformedForecastData, n, len(h.Precipitation), len(h.PrecipitationProbability), len(h.WeatherCode))
	}

	points := make([]HourlyForecastPoint, n)
	for i := range n {
		if h.Time[i] == nil || h.Precipitation[i] == nil || h.PrecipitationProbability[i] == nil || h.WeatherCode[i] == nil {
			return nil, fmt.Errorf("%w: hourly[%d] has a null field", ErrMalformedForecastData, i)
		}
		ts, err := time.ParseInLocation(openMeteoTimeLayout, *h.Time[i], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: hourly.time[%d] %q", ErrMalformedForecastData, i, *h.Time[i])
		}
		p := HourlyForecastPoint{
			Timestamp:                ts,
			PrecipitationAmount:      *h.Precipitation[i],
			PrecipitationProbability: *h.PrecipitationProbability[i],
			WeatherCode:              WeatherCode(*h.WeatherCode[i]),
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("hourly[%d]: %w", i, err)
		}
		points[i] = p
	}
	return points, nil
}
