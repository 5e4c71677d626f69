package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/observability"
	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// overrideFlags are the space group and cell length flags shared by
// reference and params.
type overrideFlags struct {
	spaceGroup string
	a, b, c    string
}

func (of *overrideFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&of.spaceGroup, "sg", "", "Space group number")
	cmd.Flags().StringVar(&of.a, "a", "", "Unit cell length a")
	cmd.Flags().StringVar(&of.b, "b", "", "Unit cell length b")
	cmd.Flags().StringVar(&of.c, "c", "", "Unit cell length c")
}

func (of *overrideFlags) overrides() reference.Overrides {
	return reference.Overrides{SpaceGroup: of.spaceGroup, A: of.a, B: of.b, C: of.c}
}

type referenceCommand struct {
	rt     *runtime
	values overrideFlags
	source string
	diff   bool
}

func newReferenceCommand(rt *runtime) *cobra.Command {
	rc := &referenceCommand{rt: rt}

	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Write the reference reflection file",
		Long: `Copy the XDS_ASCII.HKL of the selected reference dataset to the reference
file (reference.output, REF.hkl in the processing root by default), replacing
the space group and unit cell header lines with the saved overrides. Values
given with --sg, --a, --b and --c are saved first.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	rc.values.register(cmd)
	cmd.Flags().StringVar(&rc.source, "source", "", "Reflection file to copy (default from the selected dataset)")
	cmd.Flags().BoolVar(&rc.diff, "diff", false, "Show the header lines that changed")

	return cmd
}

func (rc *referenceCommand) run(cmd *cobra.Command, _ []string) error {
	app := rc.rt.app

	sess, err := app.session()
	if err != nil {
		return err
	}

	sess.MergeOverrides(rc.values.overrides())

	saveErr := sess.Save()
	if saveErr != nil {
		return saveErr
	}

	// Missing values are left to Synthesize, which empties the target.
	validateErr := sess.Overrides.Validate()
	if validateErr != nil && !errors.Is(validateErr, xds.ErrMissingParameter) {
		return validateErr
	}

	src, err := rc.sourcePath(app, sess.Source)
	if err != nil {
		return err
	}

	dst := app.referenceTarget()

	var res reference.Result

	err = app.observe(cmd.Context(), "reference", func(context.Context) error {
		var synthErr error

		res, synthErr = reference.Synthesize(src, dst, sess.Overrides)

		return synthErr
	})
	if err != nil {
		return err
	}

	app.Pipeline.Record(cmd.Context(), observability.PipelineStats{ReferencesOut: 1})

	sess.SetReference(dst)

	saveErr = sess.Save()
	if saveErr != nil {
		return saveErr
	}

	app.Render.Reference(res)

	if rc.diff {
		lines, diffErr := reference.HeaderDiff(src, dst)
		if diffErr != nil {
			return diffErr
		}

		app.Render.Diff(lines)
	}

	return nil
}

func (rc *referenceCommand) sourcePath(app *App, fromSession func() (string, error)) (string, error) {
	if rc.source != "" {
		return rc.source, nil
	}

	if app.Config.Reference.Source != "" {
		return app.Config.Reference.Source, nil
	}

	return fromSession()
}
