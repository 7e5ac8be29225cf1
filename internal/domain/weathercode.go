package domain

// WeatherCode is a WMO 4677 present-weather code.
type WeatherCode int

// WeatherCategory groups weather codes for display.
type WeatherCategory string

const (
	CategoryClear   WeatherCategory = "clear"
	CategoryCloudy  WeatherCategory = "cloudy"
	CategoryRain    WeatherCategory = "rain"
	CategorySnow    WeatherCategory = "snow"
	CategoryStorm   WeatherCategory = "storm"
	CategoryUnknown WeatherCategory = "unknown"
)

// Category buckets the code by its range. Negative and out-of-table codes are unknown.
func (c WeatherCode) Category() WeatherCategory {
	switch {
	case c < 0:
		return CategoryUnknown
	case c <= 3:
		return CategoryClear
	case c <= 49:
		return CategoryCloudy
	case c <= 69:
		return CategoryRain
	case c <= 79:
		return CategorySnow
	case c <= 99:
		return CategoryStorm
	default:
		return CategoryUnknown
	}
}

// Icon returns the emoji used by the dashboard for the code's category.
func (c WeatherCode) Icon() string {
	switch c.Category() {
	case CategoryClear:
		return "☀️"
	case CategoryCloudy:
		return "☁️"
	case CategoryRain:
		return "🌧️"
	case CategorySnow:
		return "🌨️"
	case CategoryStorm:
		return "⛈️"
	default:
		return "🌤️"
	}
}
