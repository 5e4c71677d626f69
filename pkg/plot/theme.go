package plot

import "fmt"

// Theme represents a color theme for the plot page.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ParseTheme validates a theme name. An empty name selects ThemeLight.
func ParseTheme(name string) (Theme, error) {
	switch Theme(name) {
	case "", ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
}

// ThemeConfig holds the chart colors of a theme.
type ThemeConfig struct {
	PageBackground  string
	ChartBackground string
	ChartGrid       string
	ChartAxis       string
	ChartText       string
	ChartTextMuted  string

	// Bars is the fill of histogram bars, one per axis.
	Bars [3]string
	// Slices are the pie slice colors, reused cyclically.
	Slices []string
}

// GetThemeConfig returns the configuration for a given theme.
func GetThemeConfig(theme Theme) ThemeConfig {
	switch theme {
	case ThemeDark:
		return darkTheme
	case ThemeLight:
		return lightTheme
	default:
		return lightTheme
	}
}

var lightTheme = ThemeConfig{
	PageBackground:  "#ffffff",
	ChartBackground: "#ffffff",
	ChartGrid:       "#e7e5e4", // stone-200.
	ChartAxis:       "#a8a29e", // stone-400.
	ChartText:       "#44403c", // stone-700.
	ChartTextMuted:  "#78716c", // stone-500.

	Bars: [3]string{"#0369a1", "#4d7c0f", "#be185d"}, // sky-700, lime-700, pink-700.
	Slices: []string{
		"#a16207", "#0369a1", "#4d7c0f", "#7c3aed", "#be185d",
		"#0891b2", "#c2410c", "#4338ca", "#15803d", "#b91c1c",
	},
}

var darkTheme = ThemeConfig{
	PageBackground:  "#1c1917", // stone-900.
	ChartBackground: "#1c1917",
	ChartGrid:       "#44403c", // stone-700.
	ChartAxis:       "#57534e", // stone-600.
	ChartText:       "#d6d3d1", // stone-300.
	ChartTextMuted:  "#a8a29e", // stone-400.

	Bars: [3]string{"#38bdf8", "#a3e635", "#f472b6"}, // sky-400, lime-400, pink-400.
	Slices: []string{
		"#fbbf24", "#38bdf8", "#a3e635", "#a78bfa", "#f472b6",
		"#22d3ee", "#fb923c", "#818cf8", "#4ade80", "#f87171",
	},
}
