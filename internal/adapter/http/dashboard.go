package http

import (
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHours(r.URL.Query().Get("hours"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, status := s.monitor.Latest()
	if !status.Loaded {
		w.Header().Set("Retry-After", "5")
		http.Error(w, "loading forecast, try again shortly", http.StatusServiceUnavailable)
		return
	}

	upcoming := s.upcomingHours(snap, hours)
	labels := make([]string, 0, len(upcoming))
	probability := make([]opts.BarData, 0, len(upcoming))
	amount := make([]opts.BarData, 0, len(upcoming))
	for _, h := range upcoming {
		labels = append(labels, h.Icon+" "+h.Time.Format("15:04"))
		probability = append(probability, opts.BarData{Value: h.Probability})
		amount = append(amount, opts.BarData{Value: h.PrecipitationMM})
	}

	subtitle := alertMessage(snap.Verdict, s.monitor.ClassifierOptions())
	if status.Stale {
		subtitle += " (stale: " + status.LastError + ")"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Rain alert: " + snap.Location.Name,
			Theme:     types.ThemeChalk,
			Width:     "900px",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    snap.Location.Name,
			Subtitle: subtitle + " | updated " + snap.ClassifiedAt.Format("15:04"),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)
	bar.SetXAxis(labels).
		AddSeries("Probability (%)", probability).
		AddSeries("Precipitation (mm)", amount)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := bar.Render(w); err != nil {
		s.logger.Error("render dashboard", "error", err)
	}
}
