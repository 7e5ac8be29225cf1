package rainviewer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rain-alert-service/internal/adapter/upstream"
	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

func testClient(url string) *Client {
	f := upstream.NewFetcher("rainviewer", 5*time.Second, observability.NewMetricsForTesting())
	return NewClient(f, url, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchRadarFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public/weather-maps.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"generated": 1752519600,
			"host": "https://tilecache.rainviewer.com",
			"radar": {
				"past": [{"time": 1752518400, "path": "/v2/radar/a"}, {"time": 1752519000, "path": "/v2/radar/b"}],
				"nowcast": []
			}
		}`))
	}))
	defer srv.Close()

	frames, err := testClient(srv.URL+"/public/weather-maps.json").FetchRadarFrames(context.Background())
	require.NoError(t, err)

	latest, ok := frames.LatestPast()
	require.True(t, ok)
	assert.Equal(t, "/v2/radar/b", latest.Path)
	assert.Empty(t, frames.Nowcast)
}

func TestClient_FetchRadarFrames_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version": "2.0"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchRadarFrames(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedRadarData)
}

func TestClient_FetchRadarFrames_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchRadarFrames(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch radar frames")
	assert.Contains(t, err.Error(), "502")
}
