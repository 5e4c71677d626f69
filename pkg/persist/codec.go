// Package persist stores small state documents next to the data they describe.
package persist

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	yamlExtension     = ".yaml"
	defaultYAMLIndent = 2
)

const stateFileMode fs.FileMode = 0o644

// ErrNoState is returned by LoadState when no state file exists.
var ErrNoState = errors.New("no saved state")

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".yaml").
	Extension() string
}

// YAMLCodec implements Codec using YAML, the format operators edit by hand.
type YAMLCodec struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, state any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(defaultYAMLIndent)

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding. An empty document
// leaves state untouched.
func (c *YAMLCodec) Decode(r io.Reader, state any) error {
	err := yaml.NewDecoder(r).Decode(state)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// StatePath returns the file that holds basename's state in dir.
func StatePath(dir, basename string, codec Codec) string {
	return filepath.Join(dir, basename+codec.Extension())
}

// SaveState writes state to dir. The document is staged in a temporary file
// and renamed into place so readers never observe a partial write.
func SaveState(dir, basename string, codec Codec, state any) error {
	path := StatePath(dir, basename, codec)

	file, err := os.CreateTemp(dir, "."+basename+"-*")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	encodeErr := codec.Encode(file, state)
	chmodErr := file.Chmod(stateFileMode)
	closeErr := file.Close()

	err = errors.Join(encodeErr, chmodErr, closeErr)
	if err != nil {
		os.Remove(file.Name())

		return fmt.Errorf("encode state: %w", err)
	}

	err = os.Rename(file.Name(), path)
	if err != nil {
		os.Remove(file.Name())

		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// LoadState loads state from dir. The state parameter must be a pointer to
// the target struct. A missing file yields ErrNoState.
func LoadState(dir, basename string, codec Codec, state any) error {
	file, err := os.Open(StatePath(dir, basename, codec))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoState
	}

	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}
