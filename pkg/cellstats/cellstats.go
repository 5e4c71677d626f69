// Package cellstats aggregates unit cell statistics across the datasets found
// by a directory scan.
package cellstats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Sumatoshi-tech/xdsref/pkg/alg/stats"
	"github.com/Sumatoshi-tech/xdsref/pkg/cellscan"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// ErrNoDatasets indicates that the summary log holds no datasets. It wraps
// xds.ErrParse; test for it first to tell an empty scan from a malformed one.
var ErrNoDatasets = fmt.Errorf("%w: no matching datasets", xds.ErrParse)

// Options configures aggregation.
type Options struct {
	// SkipMalformed drops unparseable summary rows instead of failing.
	// Dropped rows are listed in Report.Skipped.
	SkipMalformed bool
	// Logger receives warnings about skipped rows. Nil uses slog.Default().
	Logger *slog.Logger
}

// Axis holds the values and statistics of one unit cell length.
type Axis struct {
	Values []float64 `json:"values"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// SpaceGroupCount is the number of datasets in one space group.
type SpaceGroupCount struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

// Report is the result of a unit cell aggregation.
type Report struct {
	SummaryPath string                   `json:"summary_path"`
	Count       int                      `json:"count"`
	Datasets    []cellscan.Record        `json:"datasets"`
	SpaceGroups []SpaceGroupCount        `json:"space_groups"`
	A           Axis                     `json:"a"`
	B           Axis                     `json:"b"`
	C           Axis                     `json:"c"`
	Skipped     []cellscan.MalformedLine `json:"-"`
	Failed      []cellscan.FileError     `json:"-"`
}

// Collect scans root for files named pattern, then aggregates the resulting
// summary log.
func Collect(ctx context.Context, root, pattern string, opts Options) (*Report, error) {
	scanner := &cellscan.Scanner{Logger: opts.Logger}

	scan, scanErr := scanner.Scan(ctx, root, pattern)
	if scanErr != nil {
		return nil, fmt.Errorf("collect cells: %w", scanErr)
	}

	report, loadErr := Load(scan.SummaryPath, opts)
	if loadErr != nil {
		return nil, loadErr
	}

	report.Failed = scan.Failed

	return report, nil
}

// Load aggregates an existing summary log.
func Load(summaryPath string, opts Options) (*Report, error) {
	records, malformed, readErr := cellscan.ReadSummary(summaryPath)
	if readErr != nil {
		return nil, readErr
	}

	if len(malformed) > 0 && !opts.SkipMalformed {
		return nil, fmt.Errorf("%s: %w", summaryPath, malformed[0])
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, ml := range malformed {
		logger.Warn("skipping malformed summary row", "summary", summaryPath,
			"line", ml.Line, "error", ml.Err)
	}

	report, aggErr := Aggregate(records)
	if aggErr != nil {
		if errors.Is(aggErr, ErrNoDatasets) && len(malformed) > 0 {
			return nil, fmt.Errorf("%s: every row is malformed: %w", summaryPath, aggErr)
		}

		return nil, fmt.Errorf("%s: %w", summaryPath, aggErr)
	}

	report.SummaryPath = summaryPath
	report.Skipped = malformed

	return report, nil
}

// Aggregate computes the statistics of already parsed records.
func Aggregate(records []cellscan.Record) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrNoDatasets
	}

	var (
		a      = make([]float64, 0, len(records))
		b      = make([]float64, 0, len(records))
		c      = make([]float64, 0, len(records))
		groups = make(map[int]int)
	)

	for _, rec := range records {
		a = append(a, rec.A)
		b = append(b, rec.B)
		c = append(c, rec.C)
		groups[rec.SpaceGroup]++
	}

	return &Report{
		Count:       len(records),
		Datasets:    records,
		SpaceGroups: countGroups(groups),
		A:           newAxis(a),
		B:           newAxis(b),
		C:           newAxis(c),
	}, nil
}

// Means returns the rounded mean of each axis, in a, b, c order.
func (r *Report) Means() [3]float64 {
	return [3]float64{r.A.Mean, r.B.Mean, r.C.Mean}
}

// DominantSpaceGroup returns the most populated space group. Ties go to the
// lower number.
func (r *Report) DominantSpaceGroup() (SpaceGroupCount, bool) {
	if len(r.SpaceGroups) == 0 {
		return SpaceGroupCount{}, false
	}

	best := r.SpaceGroups[0]

	for _, sg := range r.SpaceGroups[1:] {
		if sg.Count > best.Count {
			best = sg
		}
	}

	return best, true
}

func newAxis(values []float64) Axis {
	summary := stats.Summarize(values, stats.DefaultPlaces)

	return Axis{
		Values: values,
		Min:    summary.Min,
		Max:    summary.Max,
		Mean:   summary.Mean,
		Std:    summary.Std,
	}
}

func countGroups(groups map[int]int) []SpaceGroupCount {
	result := make([]SpaceGroupCount, 0, len(groups))

	for number, count := range groups {
		result = append(result, SpaceGroupCount{Number: number, Count: count})
	}

	slices.SortFunc(result, func(x, y SpaceGroupCount) int {
		return x.Number - y.Number
	})

	return result
}
