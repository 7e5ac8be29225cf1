// Command classify runs the rain classifier against a saved Open-Meteo
// forecast response and prints the verdict as JSON.
//
// Usage:
//
//	go run ./cmd/classify -forecast testdata/forecast.json -now 2025-07-14T13:00:00-06:00
//
// Use -forecast - to read the response from stdin. The exit status is 1 when
// the forecast is malformed and 2 on usage errors.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

type output struct {
	Kind            domain.VerdictKind `json:"kind"`
	Level           domain.Level       `json:"level"`
	MinutesUntil    *int               `json:"minutes_until,omitempty"`
	PrecipitationMM *float64           `json:"precipitation_mm,omitempty"`
	Now             time.Time          `json:"now"`
	Timezone        string             `json:"timezone"`
	HoursScanned    int                `json:"hours"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, clockwork.NewRealClock()))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, clock clockwork.Clock) int {
	defaults := domain.DefaultOptions()

	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	forecastPath := fs.String("forecast", "", "path to an Open-Meteo forecast JSON response, or - for stdin")
	nowFlag := fs.String("now", "", "classification instant in RFC 3339 (default: current time)")
	lookAhead := fs.Float64("lookahead", defaults.LookAheadHours, "look-ahead window in hours")
	threshold := fs.Int("threshold", defaults.ProbabilityThreshold, "precipitation probability threshold (percent)")
	soon := fs.Int("soon", defaults.SoonThresholdMinutes, "minutes at or below which a soon verdict is urgent")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *forecastPath == "" {
		fs.Usage()
		return 2
	}

	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -now: %v\n", err)
			return 2
		}
		clock = clockwork.NewFakeClockAt(t)
	}

	data, err := readInput(*forecastPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "read forecast: %v\n", err)
		return 2
	}

	forecast, err := domain.ParseForecast(data)
	switch {
	case errors.Is(err, domain.ErrMalformedHourlySeries) && forecast.Current.PrecipitationAmount > 0:
		fmt.Fprintln(stderr, "warning:", err)
	case err != nil:
		fmt.Fprintln(stderr, err)
		return 1
	}

	opts := domain.Options{LookAheadHours: *lookAhead, ProbabilityThreshold: *threshold, SoonThresholdMinutes: *soon}
	now := clock.Now()
	v, err := domain.Classify(forecast.Current, forecast.Hourly, now, opts)
	switch {
	case errors.Is(err, domain.ErrInvalidOptions):
		fmt.Fprintln(stderr, err)
		return 2
	case err != nil:
		fmt.Fprintln(stderr, err)
		return 1
	}

	out := output{
		Kind:         v.Kind,
		Level:        v.Level(opts.SoonThresholdMinutes),
		Now:          now,
		Timezone:     forecast.Timezone,
		HoursScanned: len(forecast.Hourly),
	}
	switch v.Kind {
	case domain.KindSoon:
		out.MinutesUntil = &v.MinutesUntil
	case domain.KindRaining:
		out.PrecipitationMM = &v.PrecipitationAmount
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
