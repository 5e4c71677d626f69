// Package report renders scan, ranking and session results for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/xdsref/pkg/cellstats"
	"github.com/Sumatoshi-tech/xdsref/pkg/correctlp"
	"github.com/Sumatoshi-tech/xdsref/pkg/ranking"
	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
	"github.com/Sumatoshi-tech/xdsref/pkg/session"
)

const percentageValue = 100

const msgNotSet = "(not set)"

// Renderer writes human-readable output.
type Renderer struct {
	w    io.Writer
	good *color.Color
	warn *color.Color
	bad  *color.Color
	dim  *color.Color
	head *color.Color
}

// NewRenderer creates a renderer writing to w. Colors are disabled when
// noColor is set.
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	r := &Renderer{
		w:    w,
		good: color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed),
		dim:  color.New(color.FgHiBlack),
		head: color.New(color.Bold),
	}

	if noColor {
		for _, c := range []*color.Color{r.good, r.warn, r.bad, r.dim, r.head} {
			c.DisableColor()
		}
	}

	return r
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	return tbl
}

// CellStats prints the unit cell statistics and the space group counts.
func (r *Renderer) CellStats(rep *cellstats.Report, pattern string) {
	r.printf("%s\n", r.head.Sprintf("Unit cell distribution among %s with files %s",
		pluralDatasets(rep.Count), pattern))

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Axis", "Min", "Max", "Mean", "Std"})

	for _, axis := range []struct {
		name string
		data cellstats.Axis
	}{{"a", rep.A}, {"b", rep.B}, {"c", rep.C}} {
		tbl.AppendRow(table.Row{
			axis.name,
			strconv.FormatFloat(axis.data.Min, 'f', -1, 64),
			strconv.FormatFloat(axis.data.Max, 'f', -1, 64),
			fmt.Sprintf("%.2f", axis.data.Mean),
			fmt.Sprintf("%.2f", axis.data.Std),
		})
	}

	tbl.SetColumnConfigs(rightAligned(2, 3, 4, 5))
	r.printf("%s\n", tbl.Render())

	groups := newTable()
	groups.AppendHeader(table.Row{"Space group", "Datasets", "Share"})

	for _, sg := range rep.SpaceGroups {
		share := float64(sg.Count) / float64(rep.Count) * percentageValue
		groups.AppendRow(table.Row{sg.Number, sg.Count, fmt.Sprintf("%.1f%%", share)})
	}

	groups.SetColumnConfigs(rightAligned(1, 2, 3))
	r.printf("%s\n", groups.Render())

	for _, ml := range rep.Skipped {
		r.printf("%s\n", r.warn.Sprintf("skipped summary line %d: %v", ml.Line, ml.Err))
	}

	for _, fe := range rep.Failed {
		r.printf("%s\n", r.bad.Sprintf("unreadable: %s: %v", fe.Path, fe.Err))
	}
}

// Ranking prints the best n ranked datasets and any unranked ones.
func (r *Renderer) Ranking(rk *ranking.Ranking, n int) {
	r.printf("%s\n", r.head.Sprintf("%s ranked of %s", pluralDatasets(rk.Valid()), humanize.Comma(int64(rk.Len()))))

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Rank", "I/SIGMA", "Dataset"})

	for i, entry := range rk.Top(n) {
		tbl.AppendRow(table.Row{humanize.Ordinal(i + 1), fmt.Sprintf("%.2f", entry.Metric), entry.Path})
	}

	tbl.SetColumnConfigs(rightAligned(1, 2))
	r.printf("%s\n", tbl.Render())

	for _, entry := range rk.Unranked() {
		r.printf("%s\n", r.warn.Sprintf("unranked: %s (%s)", entry.Path, entry.Reason))
	}
}

// Dataset prints the statistics table of one ranked dataset.
func (r *Renderer) Dataset(rank int, entry ranking.Entry) {
	r.printf("%s %s\n", r.good.Sprintf("%s best:", humanize.Ordinal(rank)), entry.Path)

	tbl := newTable()

	header := make(table.Row, 0, len(correctlp.Columns))
	for _, column := range correctlp.Columns {
		header = append(header, column)
	}

	tbl.AppendHeader(header)

	for _, row := range entry.Table.Rows {
		cells := make(table.Row, 0, len(row.Fields))
		for _, field := range row.Fields {
			cells = append(cells, field)
		}

		if row.IsTotal() {
			tbl.AppendSeparator()
		}

		tbl.AppendRow(cells)
	}

	configs := make([]table.ColumnConfig, 0, len(correctlp.Columns))
	for i := range correctlp.Columns {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
	}

	tbl.SetColumnConfigs(configs)
	r.printf("%s\n", tbl.Render())
}

// Session prints the current selection and overrides.
func (r *Renderer) Session(sess *session.Session) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Parameter", "Value"})

	mode := "ranked"
	if sess.Manual {
		mode = "manual"
	} else if sess.Rank > 0 {
		mode = "ranked (" + humanize.Ordinal(sess.Rank) + ")"
	}

	tbl.AppendRows([]table.Row{
		{"Directory", sess.Root},
		{"Pattern", orNotSet(sess.Pattern)},
		{"Dataset", orNotSet(sess.Dataset)},
		{"Selection", mode},
		{"Reference file", orNotSet(sess.ReferenceFile) + fileSize(sess.ReferenceFile)},
		{"Space group", orNotSet(sess.Overrides.SpaceGroup)},
		{"a", orNotSet(sess.Overrides.A)},
		{"b", orNotSet(sess.Overrides.B)},
		{"c", orNotSet(sess.Overrides.C)},
	})

	if !sess.UpdatedAt.IsZero() {
		tbl.AppendFooter(table.Row{"Updated", humanize.Time(sess.UpdatedAt)})
	}

	r.printf("%s\n", tbl.Render())
}

// Reference prints the outcome of a reference synthesis.
func (r *Renderer) Reference(res reference.Result) {
	r.printf("%s %s%s\n", r.good.Sprint("wrote"), res.Path, fileSize(res.Path))
	r.printf("%s\n", r.dim.Sprintf("%s lines, %d space group and %d unit cell lines replaced",
		humanize.Comma(int64(res.Lines)), res.SpaceGroupLines, res.UnitCellLines))
}

// Diff prints changed lines, removals in red and additions in green.
func (r *Renderer) Diff(lines []reference.DiffLine) {
	for _, line := range lines {
		switch line.Kind {
		case reference.Removed:
			r.printf("%s\n", r.bad.Sprint(line.String()))
		case reference.Added:
			r.printf("%s\n", r.good.Sprint(line.String()))
		default:
			r.printf("%s\n", line.String())
		}
	}
}

// Success prints a highlighted message.
func (r *Renderer) Success(format string, args ...any) {
	r.printf("%s\n", r.good.Sprintf(format, args...))
}

// Warn prints a warning message.
func (r *Renderer) Warn(format string, args ...any) {
	r.printf("%s\n", r.warn.Sprintf(format, args...))
}

func rightAligned(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, number := range columns {
		configs = append(configs, table.ColumnConfig{Number: number, Align: text.AlignRight})
	}

	return configs
}

func pluralDatasets(n int) string {
	if n == 1 {
		return "1 dataset"
	}

	return humanize.Comma(int64(n)) + " datasets"
}

func orNotSet(value string) string {
	if strings.TrimSpace(value) == "" {
		return msgNotSet
	}

	return value
}

func fileSize(path string) string {
	if path == "" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return " (" + humanize.Bytes(uint64(info.Size())) + ")"
}
