package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecast = `{
  "utc_offset_seconds": -21600,
  "timezone": "America/Mexico_City",
  "current": {"time": "2025-07-14T13:00", "temperature_2m": 29.4, "weather_code": 2, "precipitation": 0.0},
  "hourly": {
    "time": ["2025-07-14T13:00", "2025-07-14T14:00", "2025-07-14T15:00"],
    "precipitation": [0.0, 0.0, 1.2],
    "precipitation_probability": [10, 55, 80],
    "weather_code": [2, 3, 61]
  }
}`

func runClassify(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.July, 14, 19, 0, 0, 0, time.UTC))
	code := run(args, strings.NewReader(stdin), &stdout, &stderr, clock)
	return code, stdout.String(), stderr.String()
}

func TestRun_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.json")
	require.NoError(t, os.WriteFile(path, []byte(forecast), 0o600))

	code, stdout, stderr := runClassify(t, "", "-forecast", path)
	require.Equal(t, 0, code, stderr)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "soon", out["kind"])
	assert.Equal(t, "probable", out["level"])
	assert.EqualValues(t, 60, out["minutes_until"])
	assert.EqualValues(t, 3, out["hours"])
}

func TestRun_NowAndThresholdFlags(t *testing.T) {
	code, stdout, stderr := runClassify(t, forecast,
		"-forecast", "-", "-now", "2025-07-14T14:50:00-06:00", "-threshold", "90", "-soon", "15")
	require.Equal(t, 0, code, stderr)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "soon", out["kind"])
	assert.Equal(t, "urgent", out["level"])
	assert.EqualValues(t, 10, out["minutes_until"])
}

func TestRun_Malformed(t *testing.T) {
	code, _, stderr := runClassify(t, `{"hourly": {}}`, "-forecast", "-")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "malformed forecast data")
}

func TestRun_UsageErrors(t *testing.T) {
	code, _, _ := runClassify(t, "")
	assert.Equal(t, 2, code, "missing -forecast")

	code, _, _ = runClassify(t, forecast, "-forecast", "-", "-now", "yesterday")
	assert.Equal(t, 2, code)

	code, _, _ = runClassify(t, forecast, "-forecast", "-", "-threshold", "120")
	assert.Equal(t, 2, code)
}

func TestRun_RainingWithMalformedHourlySeries(t *testing.T) {
	input := strings.Replace(forecast, `"precipitation": 0.0}`, `"precipitation": 2.4}`, 1)
	input = strings.Replace(input, "[10, 55, 80]", "[10, null, 80]", 1)

	code, stdout, stderr := runClassify(t, input, "-forecast", "-")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "hourly[1]")

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "raining", out["kind"])
	assert.EqualValues(t, 2.4, out["precipitation_mm"])
}
