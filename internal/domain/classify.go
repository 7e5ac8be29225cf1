package domain

import (
	"fmt"
	"math"
	"time"
)

// Default classifier tuning.
const (
	DefaultLookAheadHours       = 2.0
	DefaultProbabilityThreshold = 50
	DefaultSoonThresholdMinutes = 15
)

// Options tunes Classify. Use DefaultOptions for the stock values.
type Options struct {
	LookAheadHours       float64
	ProbabilityThreshold int
	SoonThresholdMinutes int
}

// DefaultOptions returns a 2 hour look-ahead, a 50% probability threshold and
// a 15 minute urgency threshold.
func DefaultOptions() Options {
	return Options{
		LookAheadHours:       DefaultLookAheadHours,
		ProbabilityThreshold: DefaultProbabilityThreshold,
		SoonThresholdMinutes: DefaultSoonThresholdMinutes,
	}
}

// Validate checks that the options describe a usable window.
func (o Options) Validate() error {
	if math.IsNaN(o.LookAheadHours) || math.IsInf(o.LookAheadHours, 0) || o.LookAheadHours < 0 {
		return fmt.Errorf("%w: look-ahead hours %v", ErrInvalidOptions, o.LookAheadHours)
	}
	if o.ProbabilityThreshold < 0 || o.ProbabilityThreshold > 100 {
		return fmt.Errorf("%w: probability threshold %d", ErrInvalidOptions, o.ProbabilityThreshold)
	}
	if o.SoonThresholdMinutes < 0 {
		return fmt.Errorf("%w: soon threshold %d", ErrInvalidOptions, o.SoonThresholdMinutes)
	}
	return nil
}

// Classify produces the alert verdict for the given conditions and hourly
// series as seen at now. It is pure: no I/O, no clock reads, no shared state.
//
// Current rain wins over anything in the forecast, so hourly points are only
// validated once the current snapshot says it is dry. Every point is validated
// before scanning; the series must be in ascending timestamp order.
func Classify(current CurrentConditions, hourly []HourlyForecastPoint, now time.Time, opts Options) (Verdict, error) {
	if err := opts.Validate(); err != nil {
		return Verdict{}, err
	}
	if err := current.Validate(); err != nil {
		return Verdict{}, err
	}

	if current.PrecipitationAmount > 0 {
		return Raining(current.PrecipitationAmount), nil
	}

	if err := validateSeries(hourly); err != nil {
		return Verdict{}, err
	}

	for _, p := range hourly {
		hoursDiff := p.Timestamp.Sub(now).Hours()
		if hoursDiff < 0 || hoursDiff > opts.LookAheadHours {
			continue
		}
		if p.PrecipitationAmount > 0 || p.PrecipitationProbability > opts.ProbabilityThreshold {
			return Soon(int(math.Round(hoursDiff * 60))), nil
		}
	}

	return Clear(), nil
}

func validateSeries(hourly []HourlyForecastPoint) error {
	for i, p := range hourly {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("hourly[%d]: %w", i, err)
		}
		if i > 0 && !p.Timestamp.After(hourly[i-1].Timestamp) {
			return fmt.Errorf("%w: hourly[%d] time %s not after %s",
				ErrMalformedForecastData, i, p.Timestamp.Format(time.RFC3339), hourly[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
