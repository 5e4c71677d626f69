package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// persisterState is a struct for persister round-trip testing.
type persisterState struct {
	Label string `yaml:"label"`
	Value int    `yaml:"value"`
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewPersister[persisterState]("mystate", NewYAMLCodec())

	original := persisterState{Label: "hello", Value: 42}
	require.NoError(t, p.Save(dir, &original))
	assert.Equal(t, filepath.Join(dir, "mystate.yaml"), p.Path(dir))

	restored, err := p.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, original, *restored)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging file must be renamed away")
}

func TestPersister_LoadMissing(t *testing.T) {
	t.Parallel()

	p := NewPersister[persisterState]("absent", NewYAMLCodec())

	_, err := p.Load(t.TempDir())
	require.ErrorIs(t, err, ErrNoState)
}

func TestYAMLCodec_EmptyDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewPersister[persisterState]("empty", NewYAMLCodec())
	require.NoError(t, os.WriteFile(p.Path(dir), nil, 0o600))

	state, err := p.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, persisterState{}, *state)
}

func TestPersister_LoadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewPersister[persisterState]("corrupt", NewYAMLCodec())
	require.NoError(t, os.WriteFile(p.Path(dir), []byte("label: [unclosed\n"), 0o600))

	_, err := p.Load(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoState)
}
