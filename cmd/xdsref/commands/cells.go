package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/cellstats"
	"github.com/Sumatoshi-tech/xdsref/pkg/observability"
	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
)

// meanPlaces is the precision of unit cell lengths stored from the means.
const meanPlaces = 2

type cellsCommand struct {
	rt            *runtime
	useMean       bool
	skipMalformed bool
}

func newCellsCommand(rt *runtime) *cobra.Command {
	cc := &cellsCommand{rt: rt}

	cmd := &cobra.Command{
		Use:   "cells",
		Short: "Collect unit cell and space group statistics",
		Long: `Scan the processing root (two directory levels deep) for files named
--pattern, write the unit cell summary log and print min/max/mean/std of the
cell lengths together with the space group counts.`,
		Args: cobra.NoArgs,
		RunE: cc.run,
	}

	cmd.Flags().BoolVar(&cc.useMean, "use-mean", false,
		"Store the mean cell lengths (and the dominant space group when none is set) as the reference overrides")
	cmd.Flags().BoolVar(&cc.skipMalformed, "skip-malformed", false, "Skip malformed summary rows instead of failing")

	return cmd
}

func (cc *cellsCommand) run(cmd *cobra.Command, _ []string) error {
	app := cc.rt.app

	rep, err := collectCells(cmd.Context(), app, cc.skipMalformed)
	if err != nil {
		return err
	}

	app.Render.CellStats(rep, app.Config.Scan.Pattern)

	if !cc.useMean {
		return nil
	}

	means := rep.Means()

	sess, err := app.session()
	if err != nil {
		return err
	}

	overrides := reference.Overrides{
		A: strconv.FormatFloat(means[0], 'f', meanPlaces, 64),
		B: strconv.FormatFloat(means[1], 'f', meanPlaces, 64),
		C: strconv.FormatFloat(means[2], 'f', meanPlaces, 64),
	}

	// An explicit space group override wins over the dominant one.
	if dominant, ok := rep.DominantSpaceGroup(); ok && sess.Overrides.SpaceGroup == "" {
		overrides.SpaceGroup = strconv.Itoa(dominant.Number)
	}

	sess.MergeOverrides(overrides)

	saveErr := sess.Save()
	if saveErr != nil {
		return saveErr
	}

	app.success("Unit cell overrides set to a=%s b=%s c=%s sg=%s",
		sess.Overrides.A, sess.Overrides.B, sess.Overrides.C, sess.Overrides.SpaceGroup)

	return nil
}

// collectCells scans the root and aggregates the summary log.
func collectCells(ctx context.Context, app *App, skipMalformed bool) (*cellstats.Report, error) {
	pattern := app.Config.Scan.Pattern

	var rep *cellstats.Report

	err := app.observe(ctx, "cells", func(ctx context.Context) error {
		var collectErr error

		rep, collectErr = cellstats.Collect(ctx, app.Root, pattern, cellstats.Options{
			SkipMalformed: skipMalformed || app.Config.Stats.SkipMalformed,
			Logger:        app.Logger,
		})

		return collectErr
	})
	if errors.Is(err, cellstats.ErrNoDatasets) {
		return nil, fmt.Errorf("no %s files with unit cell data below %s: %w", pattern, app.Root, err)
	}

	if err != nil {
		return nil, err
	}

	app.Pipeline.Record(ctx, observability.PipelineStats{
		Datasets:     rep.Count,
		ScanFailures: len(rep.Failed),
	})

	return rep, nil
}

func reportScanProblems(app *App, rep *cellstats.Report) {
	for _, failed := range rep.Failed {
		app.warn("skipped %s", failed.Error())
	}

	for _, skipped := range rep.Skipped {
		app.warn("skipped summary row %d: %s", skipped.Line, skipped.Text)
	}
}
