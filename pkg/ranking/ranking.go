// Package ranking orders datasets by a statistic of their CORRECT.LP total
// row so that a reindexing reference can be picked.
package ranking

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/xdsref/pkg/correctlp"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// DefaultMetricColumn is the total row column used for ranking (I/SIGMA).
const DefaultMetricColumn = correctlp.ColISigma

// Options configures a ranking pass.
type Options struct {
	// MetricColumn is the whitespace-split total row field holding the metric.
	// Nil selects DefaultMetricColumn; every other value, zero included, is
	// used as given.
	MetricColumn *int
	// Workers bounds parallel table extraction. Zero uses runtime.NumCPU().
	Workers int
	// Progress, when set, is called after each file with the number of files
	// processed so far and the total. Calls are serialised.
	Progress func(done, total int)
	// Logger receives per-file warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// Column returns a MetricColumn value selecting field n.
func Column(n int) *int {
	return &n
}

func (o Options) column() int {
	if o.MetricColumn == nil {
		return DefaultMetricColumn
	}

	return *o.MetricColumn
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}

	return o.Workers
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

// Entry is one ranked candidate.
type Entry struct {
	Path string `json:"path"`
	// Total is the total row; zero when the table has none.
	Total correctlp.Row `json:"total"`
	// Metric is the ranking value, -Inf when it could not be read.
	Metric float64         `json:"metric"`
	Table  correctlp.Table `json:"-"`
	// Reason explains a missing metric.
	Reason string `json:"reason,omitempty"`
}

// Ranked reports whether the entry carries a metric.
func (e Entry) Ranked() bool {
	return !math.IsInf(e.Metric, -1)
}

// Ranking is a total order of candidates, ascending by metric.
type Ranking struct {
	entries []Entry
	valid   int
}

// Len returns the number of candidates, ranked or not.
func (r *Ranking) Len() int {
	return len(r.entries)
}

// Valid returns the number of candidates carrying a metric.
func (r *Ranking) Valid() int {
	return r.valid
}

// Ascending returns every candidate from worst to best. Candidates without a
// metric come first.
func (r *Ranking) Ascending() []Entry {
	return slices.Clone(r.entries)
}

// Top returns up to n ranked candidates from best to worst.
func (r *Ranking) Top(n int) []Entry {
	n = min(n, r.valid)
	if n <= 0 {
		return nil
	}

	top := make([]Entry, 0, n)
	for i := range n {
		top = append(top, r.entries[len(r.entries)-1-i])
	}

	return top
}

// Nth returns the n-th best ranked candidate, counting from 1. Candidates
// without a metric are never returned.
func (r *Ranking) Nth(n int) (Entry, error) {
	if n < 1 || n > r.valid {
		return Entry{}, fmt.Errorf("%w: rank %d requested, %d ranked candidates", xds.ErrNotFound, n, r.valid)
	}

	return r.entries[len(r.entries)-n], nil
}

// Unranked returns the candidates whose metric could not be read.
func (r *Ranking) Unranked() []Entry {
	return slices.Clone(r.entries[:len(r.entries)-r.valid])
}

// Discover returns every file named name below root, sorted by path.
func Discover(root, name string) ([]string, error) {
	info, statErr := os.Stat(root)
	if statErr != nil {
		return nil, fmt.Errorf("%w: discover: %w", xds.ErrIO, statErr)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: discover: %s is not a directory", xds.ErrIO, root)
	}

	matches, globErr := doublestar.Glob(os.DirFS(root), "**/"+escapeMeta(name), doublestar.WithFilesOnly())
	if globErr != nil {
		return nil, fmt.Errorf("%w: discover %s: %w", xds.ErrIO, name, globErr)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no %s below %s", xds.ErrNotFound, name, root)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		files = append(files, filepath.Join(root, filepath.FromSlash(match)))
	}

	slices.Sort(files)

	return files, nil
}

// Rank extracts the statistics table of every file and orders the files by
// their total row metric. Unreadable files and files without a usable total
// row rank as -Inf. Equal metrics keep the order of files. The only error is
// cancellation of ctx.
func Rank(ctx context.Context, files []string, opts Options) (*Ranking, error) {
	entries := make([]Entry, len(files))
	logger := opts.logger()

	var (
		mu        sync.Mutex
		processed int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.workers())

	for i, path := range files {
		group.Go(func() error {
			ctxErr := groupCtx.Err()
			if ctxErr != nil {
				return ctxErr
			}

			entries[i] = rankFile(path, opts, logger)

			if opts.Progress != nil {
				mu.Lock()
				processed++
				opts.Progress(processed, len(files))
				mu.Unlock()
			}

			return nil
		})
	}

	waitErr := group.Wait()
	if waitErr != nil {
		return nil, fmt.Errorf("rank: %w", waitErr)
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Metric, b.Metric)
	})

	ranking := &Ranking{entries: entries}
	for _, entry := range entries {
		if entry.Ranked() {
			ranking.valid++
		}
	}

	return ranking, nil
}

// RankDir discovers the files named pattern below root and ranks them.
func RankDir(ctx context.Context, root, pattern string, opts Options) (*Ranking, error) {
	files, err := Discover(root, pattern)
	if err != nil {
		return nil, err
	}

	return Rank(ctx, files, opts)
}

func rankFile(path string, opts Options, logger *slog.Logger) Entry {
	entry := Entry{Path: path, Metric: math.Inf(-1)}

	table, readErr := correctlp.Read(path)
	if readErr != nil {
		logger.Warn("cannot read statistics table", "path", path, "error", readErr)
		entry.Reason = readErr.Error()

		return entry
	}

	entry.Table = table

	total, ok := table.Total()
	if !ok {
		entry.Reason = "no total row"
		logger.Warn("statistics table has no total row", "path", path, "rows", len(table.Rows))

		return entry
	}

	entry.Total = total

	metric, parseErr := total.Float(opts.column())
	if parseErr != nil {
		entry.Reason = parseErr.Error()
		logger.Warn("total row metric unreadable", "path", path, "error", parseErr)

		return entry
	}

	if math.IsNaN(metric) {
		entry.Reason = "metric is NaN"

		return entry
	}

	entry.Metric = metric

	return entry
}

// escapeMeta quotes the glob metacharacters of a literal file name.
func escapeMeta(name string) string {
	var sb strings.Builder

	for _, r := range name {
		if strings.ContainsRune(`*?[]{}\`, r) {
			sb.WriteByte('\\')
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
