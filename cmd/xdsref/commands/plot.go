package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/plot"
)

type plotCommand struct {
	rt    *runtime
	dpi   int
	theme string
	bins  int
}

func newPlotCommand(rt *runtime) *cobra.Command {
	pc := &plotCommand{rt: rt}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Write histograms of the unit cell lengths",
		Long: `Collect unit cell statistics and write an HTML page with a histogram per
cell length and a space group chart to <dir>/<pattern>_unit_cells_DPI<dpi>.html.`,
		Args: cobra.NoArgs,
		RunE: pc.run,
	}

	cmd.Flags().IntVar(&pc.dpi, "dpi", 0, "Chart resolution in dots per inch (default from plot.dpi)")
	cmd.Flags().StringVar(&pc.theme, "theme", "", "Chart theme: light or dark (default from plot.theme)")
	cmd.Flags().IntVar(&pc.bins, "bins", 0, "Histogram bins (default from plot.bins)")

	return cmd
}

func (pc *plotCommand) run(cmd *cobra.Command, _ []string) error {
	app := pc.rt.app
	cfg := app.Config.Plot

	opts, err := pc.options(cfg.DPI, cfg.Theme, cfg.Bins)
	if err != nil {
		return err
	}

	rep, err := collectCells(cmd.Context(), app, app.Config.Stats.SkipMalformed)
	if err != nil {
		return err
	}

	reportScanProblems(app, rep)

	path, err := plot.Write(app.Root, app.Config.Scan.Pattern, rep, opts)
	if err != nil {
		return err
	}

	app.success("Plot of %d datasets written to %s", rep.Count, path)

	return nil
}

func (pc *plotCommand) options(dpi int, themeName string, bins int) (plot.Options, error) {
	if pc.dpi != 0 {
		dpi = pc.dpi
	}

	if pc.theme != "" {
		themeName = pc.theme
	}

	if pc.bins != 0 {
		bins = pc.bins
	}

	theme, err := plot.ParseTheme(themeName)
	if err != nil {
		return plot.Options{}, err
	}

	opts := plot.Options{DPI: dpi, Theme: theme, Bins: bins}

	return opts, opts.Validate()
}
