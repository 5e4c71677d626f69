// Package plot renders the unit cell distribution of a scan as an HTML page:
// one histogram per cell length and a space group pie chart.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/xdsref/pkg/alg/stats"
	"github.com/Sumatoshi-tech/xdsref/pkg/cellstats"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// Plot defaults.
const (
	DefaultBins = 100
	DefaultDPI  = 100
	MinDPI      = 10
	MaxDPI      = 1200

	figureInches = 3
	pieRadius    = "55%"
)

// ErrUnknownTheme is returned for an unsupported theme name.
var ErrUnknownTheme = errors.New("unknown theme")

// ErrDPI is returned for a DPI outside [MinDPI, MaxDPI].
var ErrDPI = errors.New("dpi out of range")

// Options configures the plot page.
type Options struct {
	DPI   int
	Theme Theme
	Bins  int
}

// Validate checks the DPI.
func (o Options) Validate() error {
	if o.DPI != 0 && (o.DPI < MinDPI || o.DPI > MaxDPI) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrDPI, o.DPI, MinDPI, MaxDPI)
	}

	return nil
}

func (o Options) withDefaults() Options {
	if o.DPI == 0 {
		o.DPI = DefaultDPI
	}

	if o.Bins <= 0 {
		o.Bins = DefaultBins
	}

	if o.Theme == "" {
		o.Theme = ThemeLight
	}

	return o
}

// FileName returns the page file name for a pattern and DPI.
func FileName(pattern string, dpi int) string {
	return pattern + "_unit_cells_DPI" + strconv.Itoa(dpi) + ".html"
}

// BinIndex returns the bin holding value. Values outside the bins map to the
// first or last bin. Returns -1 when there are no bins.
func BinIndex(bins []stats.Bin, value float64) int {
	if len(bins) == 0 {
		return -1
	}

	width := bins[0].Hi - bins[0].Lo
	if width <= 0 {
		return 0
	}

	pos := math.Floor((value - bins[0].Lo) / width)

	return int(stats.Clamp(pos, 0, float64(len(bins)-1)))
}

// Histogram builds the distribution chart of one cell length with mark lines
// at the mean and one standard deviation either side.
func Histogram(name string, axis cellstats.Axis, color string, o Options) *charts.Bar {
	o = o.withDefaults()
	co := NewChartOpts(o.Theme, o.DPI)

	bins := stats.Histogram(axis.Values, o.Bins)
	labels := make([]string, len(bins))
	data := make([]opts.BarData, len(bins))

	for i, bin := range bins {
		labels[i] = strconv.FormatFloat((bin.Lo+bin.Hi)/2, 'f', 2, 64)
		data[i] = opts.BarData{Value: bin.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init()),
		charts.WithTitleOpts(co.Title(name+" (Å)", Subtitle(axis))),
		charts.WithTooltipOpts(co.Tooltip("axis")),
		charts.WithGridOpts(co.Grid()),
		charts.WithXAxisOpts(co.XAxis(name)),
		charts.WithYAxisOpts(co.YAxis("datasets")),
	)

	series := []charts.SeriesOpts{
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: "0%"}),
	}

	if len(bins) > 0 {
		series = append(series,
			charts.WithMarkLineNameXAxisItemOpts(
				opts.MarkLineNameXAxisItem{Name: "mean", XAxis: labels[BinIndex(bins, axis.Mean)]},
				opts.MarkLineNameXAxisItem{Name: "mean-std", XAxis: labels[BinIndex(bins, axis.Mean-axis.Std)]},
				opts.MarkLineNameXAxisItem{Name: "mean+std", XAxis: labels[BinIndex(bins, axis.Mean+axis.Std)]},
			),
			charts.WithMarkLineStyleOpts(co.MarkLine()),
		)
	}

	bar.SetXAxis(labels).AddSeries(name, data, series...)

	return bar
}

// Subtitle formats the statistics line of an axis.
func Subtitle(axis cellstats.Axis) string {
	return fmt.Sprintf("min %.2f  max %.2f\nmean %.2f  std %.2f", axis.Min, axis.Max, axis.Mean, axis.Std)
}

// SpaceGroupPie builds the space group share chart.
func SpaceGroupPie(groups []cellstats.SpaceGroupCount, o Options) *charts.Pie {
	o = o.withDefaults()
	co := NewChartOpts(o.Theme, o.DPI)
	slices := GetThemeConfig(o.Theme).Slices

	data := make([]opts.PieData, 0, len(groups))
	for i, group := range groups {
		data = append(data, opts.PieData{
			Name:      "SG " + strconv.Itoa(group.Number),
			Value:     group.Count,
			ItemStyle: &opts.ItemStyle{Color: slices[i%len(slices)]},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init()),
		charts.WithTitleOpts(co.Title("Space groups", strconv.Itoa(len(groups))+" distinct")),
		charts.WithTooltipOpts(co.Tooltip("item")),
		charts.WithLegendOpts(co.Legend()),
	)

	pie.AddSeries("Space groups", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(true),
				Formatter: "{b}: {c} ({d}%)",
				Color:     co.theme.ChartTextMuted,
			}),
			charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}),
		)

	return pie
}

// NewPage assembles the histograms and the pie chart of a report.
func NewPage(report *cellstats.Report, pattern string, o Options) *components.Page {
	o = o.withDefaults()
	colors := GetThemeConfig(o.Theme).Bars

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("Unit cell distribution among %d datasets with files %s", report.Count, pattern))
	page.SetLayout(components.PageFlexLayout)
	page.AddCustomizedHeaders(pageStyle(GetThemeConfig(o.Theme)))
	page.AddCharts(
		Histogram("a", report.A, colors[0], o),
		Histogram("b", report.B, colors[1], o),
		Histogram("c", report.C, colors[2], o),
		SpaceGroupPie(report.SpaceGroups, o),
	)

	return page
}

func pageStyle(theme ThemeConfig) string {
	return "<style>body { background-color: " + theme.PageBackground + "; }</style>"
}

// Render writes the plot page of a report.
func Render(w io.Writer, report *cellstats.Report, pattern string, o Options) error {
	err := NewPage(report, pattern, o).Render(w)
	if err != nil {
		return fmt.Errorf("render plot page: %w", err)
	}

	return nil
}

// Write renders the plot page into root and returns its path.
func Write(root, pattern string, report *cellstats.Report, o Options) (string, error) {
	validateErr := o.Validate()
	if validateErr != nil {
		return "", validateErr
	}

	o = o.withDefaults()
	path := filepath.Join(root, FileName(pattern, o.DPI))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create plot page: %w", xds.ErrIO, err)
	}

	renderErr := Render(file, report, pattern, o)
	closeErr := file.Close()

	if err := errors.Join(renderErr, closeErr); err != nil {
		return "", err
	}

	return path, nil
}
