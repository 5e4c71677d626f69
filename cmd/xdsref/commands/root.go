// Package commands implements the xdsref command handlers.
package commands

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/observability"
)

// annotationNoApp marks commands that run without configuration or telemetry.
const annotationNoApp = "xdsref/no-app"

type initFunc func(observability.Config) (observability.Providers, error)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	dir         string
	pattern     string
	verbose     bool
	quiet       bool
	noColor     bool
	logJSON     bool
	metricsAddr string
}

// runtime carries state across the lifetime of one invocation.
type runtime struct {
	flags   globalFlags
	initObs initFunc
	app     *App
}

// Execute runs the CLI with args and releases telemetry afterwards.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return execute(ctx, args, stdout, stderr, observability.Init)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer, initObs initFunc) error {
	rt := &runtime{initObs: initObs}

	root := rt.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	runErr := root.ExecuteContext(ctx)

	if rt.app == nil {
		return runErr
	}

	return errors.Join(runErr, rt.app.Close(context.WithoutCancel(ctx)))
}

func (rt *runtime) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "xdsref",
		Short: "Unit cell statistics and reference selection for XDS processing runs",
		Long: `xdsref browses a directory of XDS processing outputs.

Commands:
  cells      Collect unit cell and space group statistics
  plot       Write histograms of the unit cell lengths
  rank       Rank datasets and pick a reindexing reference
  reference  Write the reference reflection file
  reprocess  Run the reprocessing script against the reference
  params     Show or edit the saved selection`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoApp] == "true" {
				return nil
			}

			app, err := newApp(cmd, rt.flags, rt.initObs)
			if err != nil {
				return err
			}

			rt.app = app

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.flags.configPath, "config", "", "Config file (default: ./.xdsref.yaml or ~/.xdsref.yaml)")
	flags.StringVarP(&rt.flags.dir, "dir", "d", ".", "Processing root directory")
	flags.StringVarP(&rt.flags.pattern, "pattern", "p", "", "Log file name to scan (default from scan.pattern)")
	flags.BoolVarP(&rt.flags.verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVarP(&rt.flags.quiet, "quiet", "q", false, "Suppress progress and status output")
	flags.BoolVar(&rt.flags.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&rt.flags.logJSON, "log-json", false, "Write logs as JSON")
	flags.StringVar(&rt.flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")

	root.AddCommand(
		newCellsCommand(rt),
		newPlotCommand(rt),
		newRankCommand(rt),
		newReferenceCommand(rt),
		newReprocessCommand(rt),
		newParamsCommand(rt),
		newMCPCommand(rt),
		newVersionCommand(),
	)

	return root
}
