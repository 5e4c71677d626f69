package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/reprocess"
)

type reprocessCommand struct {
	rt   *runtime
	cmd  reprocess.Command
	ref  string
	wait time.Duration
}

func newReprocessCommand(rt *runtime) *cobra.Command {
	rc := &reprocessCommand{rt: rt}

	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Run the reprocessing script against the reference",
		Long: `Run the reprocessing script with the reference file of the saved selection
and wait for it. Interrupting xdsref stops the script: SIGTERM first, then
SIGKILL after the grace period.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&rc.cmd.Script, "script", "", "Reprocessing script (default from reprocess.script)")
	flags.StringVar(&rc.ref, "ref", "", "Reference file (default from the saved selection)")
	flags.StringVar(&rc.cmd.Resolution, "resolution", "", "High resolution cut (default "+reprocess.DefaultResolution+")")
	flags.StringVar(&rc.cmd.ISigCut, "i-sig-cut", "", "I/sigma cut (default "+reprocess.DefaultISigCut+")")
	flags.BoolVar(&rc.cmd.AutoProc, "autoproc", false, "Also run autoPROC")
	flags.BoolVar(&rc.cmd.Anom, "anom", false, "Keep anomalous pairs separate")
	flags.BoolVar(&rc.cmd.SkipDone, "skipdone", false, "Skip datasets already reprocessed")
	flags.StringVar(&rc.cmd.TemplateHost, "template-host", "", "Template host (default "+reprocess.DefaultTemplateHost+")")
	flags.DurationVar(&rc.wait, "grace", 0, "Delay between SIGTERM and SIGKILL on interrupt (default from reprocess.grace)")

	return cmd
}

func (rc *reprocessCommand) run(cmd *cobra.Command, _ []string) error {
	app := rc.rt.app

	command, err := rc.command(cmd, app)
	if err != nil {
		return err
	}

	grace := app.Config.Reprocess.Grace
	if rc.wait > 0 {
		grace = rc.wait
	}

	proc := reprocess.NewProcess(command)
	proc.Stdout = app.Out
	proc.Stderr = app.Err
	proc.Grace = grace
	proc.Logger = app.Logger

	ctx := cmd.Context()

	return app.observe(ctx, "reprocess", func(ctx context.Context) error {
		startErr := proc.Start()
		if startErr != nil {
			return startErr
		}

		waitErr := proc.Wait(ctx)
		if waitErr == nil || !errors.Is(waitErr, ctx.Err()) {
			return waitErr
		}

		app.warn("interrupted, stopping %s", command.Script)

		stopErr := proc.Stop(context.WithoutCancel(ctx))
		if stopErr != nil {
			return stopErr
		}

		return fmt.Errorf("reprocessing %s: %w", proc.State(), waitErr)
	})
}

// command merges config values, the saved reference and changed flags. The
// reference file must exist.
func (rc *reprocessCommand) command(cmd *cobra.Command, app *App) (reprocess.Command, error) {
	cfg := app.Config.Reprocess
	command := reprocess.Command{
		Script:       cfg.Script,
		Resolution:   cfg.Resolution,
		ISigCut:      cfg.ISigCut,
		AutoProc:     cfg.AutoProc,
		Anom:         cfg.Anom,
		SkipDone:     cfg.SkipDone,
		TemplateHost: cfg.TemplateHost,
	}

	flags := cmd.Flags()

	if flags.Changed("script") {
		command.Script = rc.cmd.Script
	}

	if flags.Changed("resolution") {
		command.Resolution = rc.cmd.Resolution
	}

	if flags.Changed("i-sig-cut") {
		command.ISigCut = rc.cmd.ISigCut
	}

	if flags.Changed("template-host") {
		command.TemplateHost = rc.cmd.TemplateHost
	}

	if flags.Changed("autoproc") {
		command.AutoProc = rc.cmd.AutoProc
	}

	if flags.Changed("anom") {
		command.Anom = rc.cmd.Anom
	}

	if flags.Changed("skipdone") {
		command.SkipDone = rc.cmd.SkipDone
	}

	command.Reference = rc.ref
	if command.Reference == "" {
		sess, err := app.session()
		if err != nil {
			return reprocess.Command{}, err
		}

		ref, err := sess.Reference()
		if err != nil {
			return reprocess.Command{}, err
		}

		command.Reference = ref
	}

	return command, command.CheckReference()
}
