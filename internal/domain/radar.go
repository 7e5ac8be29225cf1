package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RadarFrame is one radar image set, addressed by a tile path on the radar host.
type RadarFrame struct {
	Time time.Time `json:"time"`
	Path string    `json:"path"`
}

// RadarFrames is the radar frame catalogue returned by the metadata service.
type RadarFrames struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Host        string       `json:"host"`
	Past        []RadarFrame `json:"past"`
	Nowcast     []RadarFrame `json:"nowcast"`
}

// LatestPast returns the most recent observed frame.
func (r RadarFrames) LatestPast() (RadarFrame, bool) {
	if len(r.Past) == 0 {
		return RadarFrame{}, false
	}
	latest := r.Past[0]
	for _, f := range r.Past[1:] {
		if f.Time.After(latest.Time) {
			latest = f
		}
	}
	return latest, true
}

// TileOptions selects the rendering of radar tiles.
type TileOptions struct {
	Size   int  // 256 or 512
	Color  int  // colour scheme id
	Smooth bool // blur
	Snow   bool // render snow in a separate colour
}

// DefaultTileOptions matches the map overlay: 256px tiles, scheme 2, smoothed, snow shown.
func DefaultTileOptions() TileOptions {
	return TileOptions{Size: 256, Color: 2, Smooth: true, Snow: true}
}

// TileURLTemplate returns a slippy-map URL template for the frame with {z}, {x}
// and {y} placeholders left for the map library.
func (r RadarFrames) TileURLTemplate(f RadarFrame, o TileOptions) string {
	return fmt.Sprintf("%s%s/%d/{z}/{x}/{y}/%d/%d_%d.png", r.Host, f.Path, o.Size, o.Color, boolInt(o.Smooth), boolInt(o.Snow))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rawRadarFrames struct {
	Generated int64  `json:"generated"`
	Host      string `json:"host"`
	Radar     *struct {
		Past    []rawRadarFrame `json:"past"`
		Nowcast []rawRadarFrame `json:"nowcast"`
	} `json:"radar"`
}

type rawRadarFrame struct {
	Time *int64  `json:"time"`
	Path *string `json:"path"`
}

// ParseRadarFrames decodes the RainViewer weather-maps metadata document.
func ParseRadarFrames(data []byte) (RadarFrames, error) {
	var raw rawRadarFrames
	if err := json.Unmarshal(data, &raw); err != nil {
		return RadarFrames{}, fmt.Errorf("%w: %w", ErrMalformedRadarData, err)
	}
	if raw.Host == "" {
		return RadarFrames{}, fmt.Errorf("%w: missing host", ErrMalformedRadarData)
	}
	if raw.Radar == nil {
		return RadarFrames{}, fmt.Errorf("%w: missing radar", ErrMalformedRadarData)
	}

	past, err := convertFrames("past", raw.Radar.Past)
	if err != nil {
		return RadarFrames{}, err
	}
	nowcast, err := convertFrames("nowcast", raw.Radar.Nowcast)
	if err != nil {
		return RadarFrames{}, err
	}

	out := RadarFrames{Host: raw.Host, Past: past, Nowcast: nowcast}
	if raw.Generated > 0 {
		out.GeneratedAt = time.Unix(raw.Generated, 0).UTC()
	}
	return out, nil
}

func convertFrames(field string, raw []rawRadarFrame) ([]RadarFrame, error) {
	frames := make([]RadarFrame, 0, len(raw))
	for i, f := range raw {
		if f.Time == nil || f.Path == nil || *f.Path == "" {
			return nil, fmt.Errorf("%w: radar.%s[%d] missing time or path", ErrMalformedRadarData, field, i)
		}
		frames = append(frames, RadarFrame{Time: time.Unix(*f.Time, 0).UTC(), Path: *f.Path})
	}
	return frames, nil
}
