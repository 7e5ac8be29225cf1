package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRadar = `{
  "version": "2.0",
  "generated": 1752519600,
  "host": "https://tilecache.rainviewer.com",
  "radar": {
    "past": [
      {"time": 1752518400, "path": "/v2/radar/1752518400"},
      {"time": 1752519000, "path": "/v2/radar/1752519000"},
      {"time": 1752518700, "path": "/v2/radar/1752518700"}
    ],
    "nowcast": [
      {"time": 1752519600, "path": "/v2/radar/nowcast_abc"}
    ]
  }
}`

func TestParseRadarFrames(t *testing.T) {
	frames, err := ParseRadarFrames([]byte(sampleRadar))
	require.NoError(t, err)

	assert.Equal(t, "https://tilecache.rainviewer.com", frames.Host)
	assert.Equal(t, time.Unix(1752519600, 0).UTC(), frames.GeneratedAt)
	assert.Len(t, frames.Past, 3)
	assert.Len(t, frames.Nowcast, 1)

	latest, ok := frames.LatestPast()
	require.True(t, ok)
	assert.Equal(t, "/v2/radar/1752519000", latest.Path)
	assert.Equal(t, time.Unix(1752519000, 0).UTC(), latest.Time)
}

func TestParseRadarFrames_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: "{"},
		{name: "missing host", body: `{"radar": {"past": []}}`},
		{name: "missing radar", body: `{"host": "https://tilecache.rainviewer.com"}`},
		{name: "frame without path", body: `{"host": "h", "radar": {"past": [{"time": 1}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRadarFrames([]byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedRadarData)
		})
	}
}

func TestRadarFrames_LatestPastEmpty(t *testing.T) {
	_, ok := RadarFrames{}.LatestPast()
	assert.False(t, ok)
}

func TestRadarFrames_TileURLTemplate(t *testing.T) {
	frames := RadarFrames{Host: "https://tilecache.rainviewer.com"}
	f := RadarFrame{Path: "/v2/radar/1752519000"}

	assert.Equal(t,
		"https://tilecache.rainviewer.com/v2/radar/1752519000/256/{z}/{x}/{y}/2/1_1.png",
		frames.TileURLTemplate(f, DefaultTileOptions()))

	assert.Equal(t,
		"https://tilecache.rainviewer.com/v2/radar/1752519000/512/{z}/{x}/{y}/4/0_0.png",
		frames.TileURLTemplate(f, TileOptions{Size: 512, Color: 4}))
}
