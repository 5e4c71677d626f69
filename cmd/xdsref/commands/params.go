package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
	"github.com/Sumatoshi-tech/xdsref/pkg/session"
)

type paramsCommand struct {
	rt     *runtime
	values overrideFlags
	reset  bool
}

func newParamsCommand(rt *runtime) *cobra.Command {
	pc := &paramsCommand{rt: rt}

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show or edit the saved selection",
		Long: `Show the reference dataset, reference file and space group / unit cell
overrides saved for the processing root. --sg, --a, --b and --c update the
overrides; --reset clears the selection.`,
		Args: cobra.NoArgs,
		RunE: pc.run,
	}

	pc.values.register(cmd)
	cmd.Flags().BoolVar(&pc.reset, "reset", false, "Clear the saved selection and overrides")

	return cmd
}

func (pc *paramsCommand) run(_ *cobra.Command, _ []string) error {
	app := pc.rt.app

	sess, err := app.session()
	if err != nil {
		return err
	}

	changed := pc.values.overrides() != reference.Overrides{}

	if pc.reset {
		sess = session.New(app.Root, app.Config.Scan.Pattern)
		changed = true
	}

	sess.MergeOverrides(pc.values.overrides())

	if changed {
		saveErr := sess.Save()
		if saveErr != nil {
			return saveErr
		}
	}

	app.Render.Session(sess)

	return nil
}
