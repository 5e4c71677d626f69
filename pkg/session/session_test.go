package session_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
	"github.com/Sumatoshi-tech/xdsref/pkg/session"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

func TestLoad_NewWhenMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	sess, err := session.Load(root, xds.CorrectLP)
	require.NoError(t, err)

	assert.Equal(t, root, sess.Root)
	assert.Equal(t, xds.CorrectLP, sess.Pattern)
	assert.Empty(t, sess.Dataset)
	assert.NoFileExists(t, session.Path(root))
}

func TestSession_SaveLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dataset := filepath.Join(root, "run1", xds.CorrectLP)

	sess := session.New(root, xds.CorrectLP)
	sess.SelectDataset(dataset, 2)
	sess.MergeOverrides(reference.Overrides{SpaceGroup: "4", A: "10.0", B: "20.0", C: "30.0"})
	require.NoError(t, sess.Save())
	assert.FileExists(t, filepath.Join(root, ".xdsref-session.yaml"))

	loaded, err := session.Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, xds.CorrectLP, loaded.Pattern)
	assert.Equal(t, dataset, loaded.Dataset)
	assert.Equal(t, 2, loaded.Rank)
	assert.Empty(t, loaded.ReferenceFile)
	assert.Equal(t, "10.0", loaded.Overrides.A)
	assert.False(t, loaded.UpdatedAt.IsZero())

	source, err := loaded.Source()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "run1", xds.XDSASCII), source)
}

func TestLoad_PatternOverride(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, session.New(root, xds.CorrectLP).Save())

	sess, err := session.Load(root, xds.XDSASCII)
	require.NoError(t, err)
	assert.Equal(t, xds.XDSASCII, sess.Pattern)
}

func TestSession_Manual(t *testing.T) {
	t.Parallel()

	sess := session.New("/data", xds.CorrectLP)
	sess.SelectManual("/elsewhere/my_ref.hkl")

	ref, err := sess.Reference()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/my_ref.hkl", ref)

	source, err := sess.Source()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/my_ref.hkl", source)
	assert.Zero(t, sess.Rank)
}

func TestSession_ManualCorrectLP(t *testing.T) {
	t.Parallel()

	sess := session.New("/data", xds.CorrectLP)
	sess.SelectManual("/data/run1/" + xds.CorrectLP)

	_, err := sess.Reference()
	require.ErrorIs(t, err, xds.ErrMissingParameter)

	source, err := sess.Source()
	require.NoError(t, err)
	assert.Equal(t, "/data/run1/"+xds.XDSASCII, source)
}

func TestSession_SelectClearsReference(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sess := session.New(root, xds.CorrectLP)
	sess.SetReference(filepath.Join(root, xds.ReferenceName))

	ref, err := sess.Reference()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, xds.ReferenceName), ref)

	sess.SelectDataset(filepath.Join(root, "run2", xds.CorrectLP), 1)

	_, err = sess.Reference()
	require.ErrorIs(t, err, xds.ErrMissingParameter)
}

func TestSession_MissingSelection(t *testing.T) {
	t.Parallel()

	sess := session.New("/data", xds.CorrectLP)

	_, err := sess.Source()
	require.ErrorIs(t, err, xds.ErrMissingParameter)

	_, err = sess.Reference()
	require.ErrorIs(t, err, xds.ErrMissingParameter)
}

func TestSession_MergeOverrides(t *testing.T) {
	t.Parallel()

	sess := session.New("/data", xds.CorrectLP)
	sess.MergeOverrides(reference.Overrides{SpaceGroup: "19", A: "50", B: "60", C: "70"})
	sess.MergeOverrides(reference.Overrides{B: "61"})

	assert.Equal(t, reference.Overrides{SpaceGroup: "19", A: "50", B: "61", C: "70"}, sess.Overrides)
}
