package plot

import (
	"strconv"

	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartOpts provides themed chart options sized for a DPI.
type ChartOpts struct {
	theme ThemeConfig
	side  string
}

// NewChartOpts creates chart options for a theme and DPI. Charts are square,
// figureInches on a side.
func NewChartOpts(theme Theme, dpi int) *ChartOpts {
	return &ChartOpts{
		theme: GetThemeConfig(theme),
		side:  strconv.Itoa(figureInches*dpi) + "px",
	}
}

// Init returns initialization options with the themed background.
func (c *ChartOpts) Init() opts.Initialization {
	return opts.Initialization{
		Width:           c.side,
		Height:          c.side,
		BackgroundColor: c.theme.ChartBackground,
	}
}

// Title returns title options with themed text colors.
func (c *ChartOpts) Title(title, subtitle string) opts.Title {
	return opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "center",
		TitleStyle:    &opts.TextStyle{Color: c.theme.ChartText},
		SubtitleStyle: &opts.TextStyle{Color: c.theme.ChartTextMuted},
	}
}

// XAxis returns x-axis options with themed colors.
func (c *ChartOpts) XAxis(name string) opts.XAxis {
	return opts.XAxis{
		Name:      name,
		AxisLabel: &opts.AxisLabel{Color: c.theme.ChartTextMuted},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: c.theme.ChartAxis}},
	}
}

// YAxis returns y-axis options with themed colors.
func (c *ChartOpts) YAxis(name string) opts.YAxis {
	return opts.YAxis{
		Name:      name,
		AxisLabel: &opts.AxisLabel{Color: c.theme.ChartTextMuted},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: c.theme.ChartAxis}},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: c.theme.ChartGrid},
		},
	}
}

// Grid returns grid options leaving room for a two-line title.
func (c *ChartOpts) Grid() opts.Grid {
	return opts.Grid{
		Top:          "22%",
		Bottom:       "8%",
		Left:         "4%",
		Right:        "6%",
		ContainLabel: opts.Bool(true),
	}
}

// Tooltip returns tooltip options.
func (c *ChartOpts) Tooltip(trigger string) opts.Tooltip {
	return opts.Tooltip{Show: opts.Bool(true), Trigger: trigger}
}

// Legend returns a bottom legend with themed text.
func (c *ChartOpts) Legend() opts.Legend {
	return opts.Legend{
		Show:      opts.Bool(true),
		Type:      "scroll",
		Top:       "bottom",
		TextStyle: &opts.TextStyle{Color: c.theme.ChartTextMuted},
	}
}

// MarkLine returns dashed mark line options labelled with the line name.
func (c *ChartOpts) MarkLine() opts.MarkLineStyle {
	return opts.MarkLineStyle{
		Symbol: []string{"none", "none"},
		Label: &opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}",
			Color:     c.theme.ChartTextMuted,
		},
		LineStyle: &opts.LineStyle{Color: c.theme.ChartText, Type: "dashed"},
	}
}
