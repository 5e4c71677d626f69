package correctlp_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdsref/pkg/correctlp"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

const header = " RESOLUTION     NUMBER OF REFLECTIONS    COMPLETENESS R-FACTOR  R-FACTOR COMPARED I/SIGMA   R-meas  CC(1/2)  Anomal  SigAno   Nano\n"

func TestRead_FirstTableOnly(t *testing.T) {
	t.Parallel()

	table, err := correctlp.Read(filepath.Join("testdata", xds.CorrectLP))
	require.NoError(t, err)

	require.Len(t, table.Rows, 5)
	assert.Equal(t, "6.04", table.Rows[0].Fields[correctlp.ColResolution])

	total, ok := table.Total()
	require.True(t, ok)

	isigma, err := total.Float(correctlp.ColISigma)
	require.NoError(t, err)
	assert.InDelta(t, 19.98, isigma, 1e-9)
	assert.Len(t, total.Fields, len(correctlp.Columns))
}

func TestExtractReader_NoHeader(t *testing.T) {
	t.Parallel()

	table, err := correctlp.ExtractReader(strings.NewReader("     6.04  20254  2833\n    total  1  2  3\n"))
	require.NoError(t, err)
	assert.True(t, table.Empty())

	_, ok := table.Total()
	assert.False(t, ok)
}

func TestExtractReader_NoTotalRow(t *testing.T) {
	t.Parallel()

	input := header +
		"   LIMIT     OBSERVED\n" +
		"\n" +
		"     6.04       20254\n" +
		" not a data row\n" +
		"\n" +
		"     4.30       37682\n"

	table, err := correctlp.ExtractReader(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "4.30", table.Rows[1].Fields[0])

	_, ok := table.Total()
	assert.False(t, ok)
}

func TestExtractReader_HeaderWhitespaceIsNormalised(t *testing.T) {
	t.Parallel()

	input := "\tRESOLUTION NUMBER OF REFLECTIONS COMPLETENESS R-FACTOR R-FACTOR COMPARED I/SIGMA R-meas CC(1/2) Anomal SigAno Nano  \n" +
		"sub\n" +
		"sub\n" +
		"  total 1 2 3 4 5 6 7 12.5\n"

	table, err := correctlp.ExtractReader(strings.NewReader(input))
	require.NoError(t, err)

	total, ok := table.Total()
	require.True(t, ok)

	metric, err := total.Float(correctlp.ColISigma)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, metric, 1e-9)
}

func TestExtractReader_SubHeaderLinesAreSkipped(t *testing.T) {
	t.Parallel()

	input := header + "1 skipped\n2 skipped\n3 kept\n"

	table, err := correctlp.ExtractReader(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "3 kept", table.Rows[0].Text)
}

func TestRow_Float(t *testing.T) {
	t.Parallel()

	row := correctlp.Row{Fields: []string{"total", "97.0%"}}

	_, err := row.Float(1)
	require.ErrorIs(t, err, xds.ErrParse)

	_, err = row.Float(8)
	require.ErrorIs(t, err, xds.ErrParse)
}

func TestExtract_MissingFile(t *testing.T) {
	t.Parallel()

	table := correctlp.Extract(filepath.Join(t.TempDir(), "missing", xds.CorrectLP))
	assert.True(t, table.Empty())

	_, err := correctlp.Read(filepath.Join(t.TempDir(), "missing", xds.CorrectLP))
	assert.ErrorIs(t, err, xds.ErrIO)
}
