package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdsref/cmd/xdsref/commands"
	"github.com/Sumatoshi-tech/xdsref/pkg/cellscan"
	"github.com/Sumatoshi-tech/xdsref/pkg/cellstats"
	"github.com/Sumatoshi-tech/xdsref/pkg/config"
	"github.com/Sumatoshi-tech/xdsref/pkg/session"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

const correctLPTemplate = ` SPACE_GROUP_NUMBER=   19
 UNIT_CELL_CONSTANTS=    50.0    60.0    70.0  90.000  90.000  90.000

 RESOLUTION     NUMBER OF REFLECTIONS    COMPLETENESS R-FACTOR  R-FACTOR COMPARED I/SIGMA   R-meas  CC(1/2)  Anomal  SigAno   Nano
   LIMIT     OBSERVED  UNIQUE  POSSIBLE     OF DATA   observed  expected                                      Corr

     6.04       20254    2833      2854       99.3%%       3.6%%      4.0%%    20250   44.36      3.9%%    99.9*    -6    0.815    1254
    total      156261   22556     23243       97.0%%       6.3%%      6.7%%   155930   %s      6.8%%    99.9*    -2    0.776    9898
`

const asciiHeader = `!FORMAT=XDS_ASCII    MERGE=FALSE    FRIEDEL'S_LAW=TRUE
!SPACE_GROUP_NUMBER=   19
!UNIT_CELL_CONSTANTS=    50.000    60.000    70.000  90.000  90.000  90.000
!END_OF_HEADER
     1     0     3  1.234E+03  5.678E+01
!END_OF_DATA
`

type result struct {
	stdout string
	stderr string
	err    error
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// buildRoot creates one dataset directory per I/SIGMA value, each with a
// CORRECT.LP and an XDS_ASCII.HKL.
func buildRoot(t *testing.T, isigmas ...string) string {
	t.Helper()

	root := t.TempDir()

	for i, isigma := range isigmas {
		dir := filepath.Join(root, fmt.Sprintf("ds_%d", i+1))
		writeFile(t, filepath.Join(dir, xds.CorrectLP), fmt.Sprintf(correctLPTemplate, isigma))
		writeFile(t, filepath.Join(dir, xds.XDSASCII), asciiHeader)
	}

	return root
}

func runWithConfig(t *testing.T, configYAML string, args ...string) result {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), ".xdsref.yaml")
	writeFile(t, cfgPath, configYAML)

	var stdout, stderr bytes.Buffer

	full := append([]string{"--config", cfgPath, "--no-color"}, args...)
	err := commands.Execute(context.Background(), full, &stdout, &stderr)

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func run(t *testing.T, args ...string) result {
	t.Helper()

	return runWithConfig(t, "", args...)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	res := run(t, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "xdsref ")
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	res := runWithConfig(t, "plot:\n  dpi: 1\n", "params", "--dir", t.TempDir())
	require.ErrorIs(t, res.err, config.ErrInvalidDPI)
}

func TestCells_PrintsStatistics(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "9.1", "12.5")

	res := run(t, "cells", "--dir", root)
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "3 datasets")
	assert.Contains(t, res.stdout, "50.00")
	assert.Contains(t, res.stdout, "100.0%")
	assert.FileExists(t, cellscan.SummaryPath(root, xds.CorrectLP))
}

func TestCells_UseMean(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")

	res := run(t, "cells", "--dir", root, "--use-mean")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "a=50.00 b=60.00 c=70.00")

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "50.00", sess.Overrides.A)
	assert.Equal(t, "60.00", sess.Overrides.B)
	assert.Equal(t, "70.00", sess.Overrides.C)
	assert.Equal(t, "19", sess.Overrides.SpaceGroup)
	assert.Contains(t, res.stdout, "sg=19")
}

func TestCells_UseMeanKeepsExplicitSpaceGroup(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")
	require.NoError(t, run(t, "params", "--dir", root, "--sg", "5").err)

	require.NoError(t, run(t, "cells", "--dir", root, "--use-mean").err)

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "5", sess.Overrides.SpaceGroup)
	assert.Equal(t, "50.00", sess.Overrides.A)
}

func TestCells_NoDatasets(t *testing.T) {
	t.Parallel()

	res := run(t, "cells", "--dir", t.TempDir())
	require.ErrorIs(t, res.err, cellstats.ErrNoDatasets)
}

func TestPlot_WritesPage(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")

	res := run(t, "plot", "--dir", root, "--dpi", "150", "--theme", "dark")
	require.NoError(t, res.err)

	page := filepath.Join(root, xds.CorrectLP+"_unit_cells_DPI150.html")
	assert.FileExists(t, page)
	assert.Contains(t, res.stdout, page)
}

func TestPlot_RejectsTheme(t *testing.T) {
	t.Parallel()

	res := run(t, "plot", "--dir", buildRoot(t, "8.3"), "--theme", "neon")
	require.Error(t, res.err)
}

func TestRank_SelectsBest(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5", "9.1")

	res := run(t, "rank", "--dir", root)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "1st best:")
	assert.Contains(t, res.stderr, "3/3 files")

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ds_2", xds.CorrectLP), sess.Dataset)
	assert.Equal(t, 1, sess.Rank)
	assert.Empty(t, sess.ReferenceFile)
}

func TestRank_PickSecond(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5", "9.1")

	res := run(t, "rank", "--dir", root, "--pick", "2", "--quiet")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "3/3")

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ds_3", xds.CorrectLP), sess.Dataset)
}

func TestRank_PickOutOfRange(t *testing.T) {
	t.Parallel()

	res := run(t, "rank", "--dir", buildRoot(t, "8.3"), "--pick", "4")
	require.ErrorIs(t, res.err, xds.ErrNotFound)
}

func TestRank_MetricColumnZero(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")

	res := run(t, "rank", "--dir", root, "--metric-column", "0")
	require.ErrorIs(t, res.err, xds.ErrNotFound)
	assert.NoFileExists(t, session.Path(root))
}

func TestRank_ListOnly(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")

	res := run(t, "rank", "--dir", root, "--pick", "0")
	require.NoError(t, res.err)
	assert.NoFileExists(t, session.Path(root))
}

func TestRank_Manual(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	manual := filepath.Join(root, "ds_1")

	res := run(t, "rank", "--dir", root, "--manual", manual)
	require.NoError(t, res.err)

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.True(t, sess.Manual)
	assert.Equal(t, filepath.Join(manual, xds.CorrectLP), sess.Dataset)
	assert.Empty(t, sess.ReferenceFile)
}

func TestRank_ManualReflectionFile(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	manual := filepath.Join(root, "ds_1", xds.XDSASCII)

	require.NoError(t, run(t, "rank", "--dir", root, "--manual", manual).err)

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, manual, sess.ReferenceFile)

	script := writeScript(t, "echo \"$@\"\n")

	res := run(t, "reprocess", "--dir", root, "--script", script)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "--ref "+manual)
}

func TestReference_WritesAndDiffs(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")
	require.NoError(t, run(t, "rank", "--dir", root).err)

	res := run(t, "reference", "--dir", root, "--sg", "5", "--a", "51.2", "--b", "61.3", "--c", "71.4", "--diff")
	require.NoError(t, res.err)

	target := filepath.Join(root, xds.ReferenceName)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "!SPACE_GROUP_NUMBER=\t5\n")
	assert.Contains(t, string(data), "!UNIT_CELL_CONSTANTS=\t51.2\t61.3\t71.4\t90.000\t90.000\t90.000\n")

	assert.Contains(t, res.stdout, "+ !SPACE_GROUP_NUMBER=\t5")
	assert.Contains(t, res.stdout, "- !SPACE_GROUP_NUMBER=   19")

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, target, sess.ReferenceFile)
	assert.Equal(t, "5", sess.Overrides.SpaceGroup)
}

func TestReference_MissingOverrideEmptiesTarget(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	require.NoError(t, run(t, "rank", "--dir", root).err)

	target := filepath.Join(root, xds.ReferenceName)
	writeFile(t, target, "stale\n")

	res := run(t, "reference", "--dir", root, "--sg", "5")
	require.ErrorIs(t, res.err, xds.ErrMissingParameter)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestReference_RejectsNonNumeric(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	require.NoError(t, run(t, "rank", "--dir", root).err)

	res := run(t, "reference", "--dir", root, "--sg", "5", "--a", "big", "--b", "1", "--c", "1")
	require.ErrorIs(t, res.err, xds.ErrParse)
	assert.NoFileExists(t, filepath.Join(root, xds.ReferenceName))
}

func TestReference_NoSelection(t *testing.T) {
	t.Parallel()

	res := run(t, "reference", "--dir", t.TempDir(), "--sg", "5", "--a", "1", "--b", "1", "--c", "1")
	require.ErrorIs(t, res.err, xds.ErrMissingParameter)
}

func TestParams_SetShowReset(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	res := run(t, "params", "--dir", root, "--sg", "19", "--a", "50.1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "50.1")
	assert.Contains(t, res.stdout, "(not set)")

	sess, err := session.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "19", sess.Overrides.SpaceGroup)

	require.NoError(t, run(t, "params", "--dir", root, "--reset").err)

	sess, err = session.Load(root, "")
	require.NoError(t, err)
	assert.Empty(t, sess.Overrides.SpaceGroup)
}

func TestParams_ReadOnlyDoesNotSave(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	require.NoError(t, run(t, "params", "--dir", root).err)
	assert.NoFileExists(t, session.Path(root))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "reprocess.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700)) //nolint:gosec // test script must be executable.

	return path
}

func writeReference(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), xds.ReferenceName)
	writeFile(t, path, "!END_OF_DATA\n")

	return path
}

func TestReprocess_PassesArguments(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "echo \"$@\"\n")
	ref := writeReference(t)
	cfg := "reprocess:\n  script: " + script + "\n  anom: true\n"

	res := runWithConfig(t, cfg, "reprocess", "--dir", t.TempDir(), "--ref", ref, "--resolution", "1.8")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout,
		"--ref "+ref+" --resolution 1.8 --i_sig_cut 1 --anom --template_host id232control")
}

func TestReprocess_UsesSessionReference(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	require.NoError(t, run(t, "rank", "--dir", root).err)
	require.NoError(t, run(t, "reference", "--dir", root, "--sg", "5", "--a", "51", "--b", "61", "--c", "71").err)

	script := writeScript(t, "echo \"$@\"\n")

	res := run(t, "reprocess", "--dir", root, "--script", script, "--skipdone")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "--ref "+filepath.Join(root, xds.ReferenceName))
	assert.Contains(t, res.stdout, "--skipdone")
}

func TestReprocess_RankWithoutReference(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	require.NoError(t, run(t, "rank", "--dir", root).err)

	out := filepath.Join(t.TempDir(), "ran.txt")
	script := writeScript(t, "touch "+out+"\n")

	res := run(t, "reprocess", "--dir", root, "--script", script)
	require.ErrorIs(t, res.err, xds.ErrMissingParameter)
	assert.NoFileExists(t, out)
}

func TestReprocess_StaleSessionReference(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3", "12.5")
	require.NoError(t, run(t, "rank", "--dir", root).err)
	require.NoError(t, run(t, "reference", "--dir", root, "--sg", "5", "--a", "51", "--b", "61", "--c", "71").err)
	require.NoError(t, os.Remove(filepath.Join(root, xds.ReferenceName)))

	script := writeScript(t, "exit 0\n")

	res := run(t, "reprocess", "--dir", root, "--script", script)
	require.ErrorIs(t, res.err, xds.ErrNotFound)

	require.NoError(t, run(t, "rank", "--dir", root, "--pick", "2").err)

	res = run(t, "reprocess", "--dir", root, "--script", script)
	require.ErrorIs(t, res.err, xds.ErrMissingParameter)
}

func TestReprocess_MissingReferenceFile(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "exit 0\n")
	missing := filepath.Join(t.TempDir(), xds.ReferenceName)

	res := run(t, "reprocess", "--dir", t.TempDir(), "--ref", missing, "--script", script)
	require.ErrorIs(t, res.err, xds.ErrNotFound)
}

func TestReprocess_ManualCorrectLPNeedsReference(t *testing.T) {
	t.Parallel()

	root := buildRoot(t, "8.3")
	require.NoError(t, run(t, "rank", "--dir", root, "--manual", filepath.Join(root, "ds_1")).err)

	res := run(t, "reprocess", "--dir", root, "--script", writeScript(t, "exit 0\n"))
	require.ErrorIs(t, res.err, xds.ErrMissingParameter)
}

func TestReprocess_FailingScript(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "exit 3\n")

	res := run(t, "reprocess", "--dir", t.TempDir(), "--ref", writeReference(t), "--script", script)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "code 3")
}

func TestReprocess_MissingScript(t *testing.T) {
	t.Parallel()

	res := run(t, "reprocess", "--dir", t.TempDir(), "--ref", writeReference(t))
	require.ErrorIs(t, res.err, xds.ErrMissingParameter)
}
