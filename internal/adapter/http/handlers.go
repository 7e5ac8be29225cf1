package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/monitor"
)

const (
	defaultForecastHours = 8
	maxForecastHours     = 48
)

type currentResponse struct {
	Time            time.Time              `json:"time"`
	TemperatureC    float64                `json:"temperature_c"`
	PrecipitationMM float64                `json:"precipitation_mm"`
	WeatherCode     domain.WeatherCode     `json:"weather_code"`
	Category        domain.WeatherCategory `json:"category"`
	Icon            string                 `json:"icon"`
}

type verdictResponse struct {
	SnapshotID      string             `json:"snapshot_id"`
	Kind            domain.VerdictKind `json:"kind"`
	Level           domain.Level       `json:"level"`
	Message         string             `json:"message"`
	MinutesUntil    *int               `json:"minutes_until,omitempty"`
	PrecipitationMM *float64           `json:"precipitation_mm,omitempty"`
	Location        domain.Location    `json:"location"`
	Current         currentResponse    `json:"current"`
	ClassifiedAt    time.Time          `json:"classified_at"`
	Stale           bool               `json:"stale"`
	LastError       string             `json:"last_error,omitempty"`
}

type hourResponse struct {
	Time            time.Time              `json:"time"`
	PrecipitationMM float64                `json:"precipitation_mm"`
	Probability     int                    `json:"probability"`
	WeatherCode     domain.WeatherCode     `json:"weather_code"`
	Category        domain.WeatherCategory `json:"category"`
	Icon            string                 `json:"icon"`
	Likely          bool                   `json:"likely"`
}

type forecastResponse struct {
	Location     domain.Location `json:"location"`
	ClassifiedAt time.Time       `json:"classified_at"`
	Hours        []hourResponse  `json:"hours"`
}

type radarFrameResponse struct {
	Time        time.Time `json:"time"`
	TileURL     string    `json:"tile_url"`
	Observation bool      `json:"observation"`
}

type radarResponse struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Latest      *radarFrameResponse  `json:"latest,omitempty"`
	Frames      []radarFrameResponse `json:"frames"`
}

func (s *Server) handleVerdict(w http.ResponseWriter, _ *http.Request) {
	snap, status := s.monitor.Latest()
	if !status.Loaded {
		writeLoading(w, status)
		return
	}
	writeJSON(w, http.StatusOK, s.newVerdictResponse(snap, status))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, err := s.monitor.Refresh(r.Context())
	snap, status := s.monitor.Latest()
	if err != nil {
		s.logger.Warn("manual refresh failed", "error", err)
		if !status.Loaded {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"status": "loading",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadGateway, s.newVerdictResponse(snap, status))
		return
	}
	writeJSON(w, http.StatusOK, s.newVerdictResponse(snap, status))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHours(r.URL.Query().Get("hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, status := s.monitor.Latest()
	if !status.Loaded {
		writeLoading(w, status)
		return
	}
	writeJSON(w, http.StatusOK, forecastResponse{
		Location:     snap.Location,
		ClassifiedAt: snap.ClassifiedAt,
		Hours:        s.upcomingHours(snap, hours),
	})
}

func (s *Server) handleRadar(w http.ResponseWriter, _ *http.Request) {
	if !s.monitor.RadarEnabled() {
		writeError(w, http.StatusNotFound, "radar disabled")
		return
	}
	snap, status := s.monitor.Latest()
	if !status.Loaded || snap.Radar == nil {
		writeError(w, http.StatusNotFound, "radar frames not loaded")
		return
	}

	frames := snap.Radar
	tiles := domain.DefaultTileOptions()
	resp := radarResponse{
		GeneratedAt: frames.GeneratedAt,
		Frames:      make([]radarFrameResponse, 0, len(frames.Past)+len(frames.Nowcast)),
	}
	for _, f := range frames.Past {
		resp.Frames = append(resp.Frames, radarFrameResponse{Time: f.Time, TileURL: frames.TileURLTemplate(f, tiles), Observation: true})
	}
	for _, f := range frames.Nowcast {
		resp.Frames = append(resp.Frames, radarFrameResponse{Time: f.Time, TileURL: frames.TileURLTemplate(f, tiles)})
	}
	if latest, ok := frames.LatestPast(); ok {
		resp.Latest = &radarFrameResponse{Time: latest.Time, TileURL: frames.TileURLTemplate(latest, tiles), Observation: true}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) upcomingHours(snap monitor.Snapshot, n int) []hourResponse {
	threshold := s.monitor.ClassifierOptions().ProbabilityThreshold
	forecast := domain.Forecast{Hourly: snap.Hourly}
	points := forecast.Upcoming(snap.ClassifiedAt, n)

	out := make([]hourResponse, 0, len(points))
	for _, p := range points {
		out = append(out, hourResponse{
			Time:            p.Timestamp,
			PrecipitationMM: p.PrecipitationAmount,
			Probability:     p.PrecipitationProbability,
			WeatherCode:     p.WeatherCode,
			Category:        p.WeatherCode.Category(),
			Icon:            p.WeatherCode.Icon(),
			Likely:          p.PrecipitationProbability > threshold,
		})
	}
	return out
}

func (s *Server) newVerdictResponse(snap monitor.Snapshot, status monitor.Status) verdictResponse {
	opts := s.monitor.ClassifierOptions()
	v := snap.Verdict
	resp := verdictResponse{
		SnapshotID: snap.ID,
		Kind:       v.Kind,
		Level:      v.Level(opts.SoonThresholdMinutes),
		Message:    alertMessage(v, opts),
		Location:   snap.Location,
		Current: currentResponse{
			Time:            snap.Current.ReferenceTime,
			TemperatureC:    math.Round(snap.Current.Temperature*10) / 10,
			PrecipitationMM: snap.Current.PrecipitationAmount,
			WeatherCode:     snap.Current.WeatherCode,
			Category:        snap.Current.WeatherCode.Category(),
			Icon:            snap.Current.WeatherCode.Icon(),
		},
		ClassifiedAt: snap.ClassifiedAt,
		Stale:        status.Stale,
		LastError:    status.LastError,
	}
	switch v.Kind {
	case domain.KindSoon:
		m := v.MinutesUntil
		resp.MinutesUntil = &m
	case domain.KindRaining:
		a := v.PrecipitationAmount
		resp.PrecipitationMM = &a
	}
	return resp
}

// alertMessage is the banner text shown for a verdict.
func alertMessage(v domain.Verdict, opts domain.Options) string {
	switch v.Kind {
	case domain.KindRaining:
		return fmt.Sprintf("Raining now (%.1f mm)", v.PrecipitationAmount)
	case domain.KindSoon:
		if v.Urgency(opts.SoonThresholdMinutes) == domain.UrgencyUrgent {
			return fmt.Sprintf("Rain in ~%d minutes!", v.MinutesUntil)
		}
		return fmt.Sprintf("Rain likely in ~%d min", v.MinutesUntil)
	default:
		return fmt.Sprintf("No rain expected in the next %s", formatHours(opts.LookAheadHours))
	}
}

func formatHours(h float64) string {
	if h == 1 {
		return "hour"
	}
	return strconv.FormatFloat(h, 'f', -1, 64) + " hours"
}

func parseHours(raw string) (int, error) {
	if raw == "" {
		return defaultForecastHours, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxForecastHours {
		return 0, fmt.Errorf("hours must be an integer between 1 and %d", maxForecastHours)
	}
	return n, nil
}

func writeLoading(w http.ResponseWriter, status monitor.Status) {
	body := map[string]string{"status": "loading"}
	if status.LastError != "" {
		body["error"] = status.LastError
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
}
