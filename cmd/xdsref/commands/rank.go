package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/observability"
	"github.com/Sumatoshi-tech/xdsref/pkg/ranking"
	"github.com/Sumatoshi-tech/xdsref/pkg/report"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

type rankCommand struct {
	rt           *runtime
	top          int
	pick         int
	manual       string
	workers      int
	metricColumn int
}

func newRankCommand(rt *runtime) *cobra.Command {
	rc := &rankCommand{rt: rt}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank datasets and pick a reindexing reference",
		Long: `Find every statistics file (rank.pattern, CORRECT.LP by default) below the
processing root, rank the datasets by the total row I/SIGMA and select the
--pick best one as the reference dataset. --pick 0 only lists the ranking.
--manual selects a dataset or reflection file directly without ranking. A
picked dataset needs the reference command before reprocess can run.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	cmd.Flags().IntVar(&rc.top, "top", 0, "Number of datasets to list (default from rank.top)")
	cmd.Flags().IntVar(&rc.pick, "pick", 1, "Select the N-th best dataset as reference (0 = list only)")
	cmd.Flags().StringVar(&rc.manual, "manual", "", "Select this CORRECT.LP or reflection file instead of ranking")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Parallel table extraction (default from rank.workers)")
	cmd.Flags().IntVar(&rc.metricColumn, "metric-column", -1, "Total row column used as metric (-1 = rank.metric_column)")

	return cmd
}

func (rc *rankCommand) run(cmd *cobra.Command, _ []string) error {
	app := rc.rt.app

	if rc.manual != "" {
		return rc.selectManual(app)
	}

	rk, err := rc.rank(cmd.Context(), app)
	if err != nil {
		return err
	}

	top := app.Config.Rank.Top
	if rc.top > 0 {
		top = rc.top
	}

	app.Render.Ranking(rk, top)

	if rc.pick <= 0 {
		return nil
	}

	entry, err := rk.Nth(rc.pick)
	if err != nil {
		return err
	}

	sess, err := app.session()
	if err != nil {
		return err
	}

	sess.SelectDataset(entry.Path, rc.pick)

	saveErr := sess.Save()
	if saveErr != nil {
		return saveErr
	}

	app.Render.Dataset(rc.pick, entry)
	app.success("Reference dataset set to %s", entry.Path)

	return nil
}

func (rc *rankCommand) options(app *App) ranking.Options {
	opts := ranking.Options{
		MetricColumn: ranking.Column(app.Config.Rank.MetricColumn),
		Workers:      app.Config.Rank.Workers,
		Logger:       app.Logger,
	}

	if rc.metricColumn >= 0 {
		opts.MetricColumn = ranking.Column(rc.metricColumn)
	}

	if rc.workers > 0 {
		opts.Workers = rc.workers
	}

	return opts
}

// rank runs the ranking scan in the background worker while drawing its
// progress on stderr.
func (rc *rankCommand) rank(ctx context.Context, app *App) (*ranking.Ranking, error) {
	opts := rc.options(app)
	progress := newProgressPrinter(app)
	opts.Progress = progress.update

	var rk *ranking.Ranking

	err := app.observe(ctx, "rank", func(ctx context.Context) error {
		worker := ranking.NewWorker(app.Root, app.Config.Rank.Pattern, opts)
		worker.Start(ctx)

		waitErr := worker.Wait(ctx)
		progress.finish()

		if waitErr != nil {
			return waitErr
		}

		rk = worker.Latest()

		return nil
	})
	if err != nil {
		return nil, err
	}

	app.Pipeline.Record(ctx, observability.PipelineStats{
		Ranked:   rk.Valid(),
		Unranked: rk.Len() - rk.Valid(),
	})

	return rk, nil
}

func (rc *rankCommand) selectManual(app *App) error {
	path, err := filepath.Abs(rc.manual)
	if err != nil {
		return fmt.Errorf("resolve --manual: %w", err)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return fmt.Errorf("%w: manual reference: %w", xds.ErrIO, statErr)
	}

	if info.IsDir() {
		path = filepath.Join(path, xds.CorrectLP)
	}

	sess, err := app.session()
	if err != nil {
		return err
	}

	sess.SelectManual(path)

	saveErr := sess.Save()
	if saveErr != nil {
		return saveErr
	}

	app.success("Reference dataset set manually to %s", path)

	return nil
}

// progressPrinter redraws the scan progress line in place.
type progressPrinter struct {
	app   *App
	mu    sync.Mutex
	drawn bool
}

func newProgressPrinter(app *App) *progressPrinter {
	return &progressPrinter{app: app}
}

func (pp *progressPrinter) update(done, total int) {
	if pp.app.Quiet {
		return
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()

	fmt.Fprintf(pp.app.Err, "\r%s", report.ProgressLine(done, total, report.DefaultBarWidth))
	pp.drawn = true
}

func (pp *progressPrinter) finish() {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.drawn {
		fmt.Fprintln(pp.app.Err)
		pp.drawn = false
	}
}
