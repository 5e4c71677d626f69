// Package session holds the operator's current selection for one processing
// root: the file pattern, the chosen reference dataset and the header
// overrides. It is passed explicitly to every operation and persisted next to
// the data so consecutive invocations share it.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/xdsref/pkg/persist"
	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// Basename is the session file name without extension.
const Basename = ".xdsref-session"

var store = persist.NewPersister[Session](Basename, persist.NewYAMLCodec())

// Session is the selection state of one processing root.
type Session struct {
	Root    string `yaml:"root"    json:"root"`
	Pattern string `yaml:"pattern" json:"pattern"`
	// Dataset is the CORRECT.LP of the chosen reference dataset.
	Dataset string `yaml:"dataset,omitempty" json:"dataset,omitempty"`
	// Rank is the position Dataset held in the ranking, zero for a manual pick.
	Rank int `yaml:"rank,omitempty" json:"rank,omitempty"`
	// ReferenceFile is the file handed to reprocessing. It is set by a
	// successful synthesis or by a manual pick of a reflection file.
	ReferenceFile string              `yaml:"reference_file,omitempty" json:"reference_file,omitempty"`
	Manual        bool                `yaml:"manual,omitempty"         json:"manual,omitempty"`
	Overrides     reference.Overrides `yaml:"overrides"                json:"overrides"`
	UpdatedAt     time.Time           `yaml:"updated_at,omitempty"     json:"updated_at,omitempty"`
}

// New returns an empty session for root.
func New(root, pattern string) *Session {
	return &Session{Root: root, Pattern: pattern}
}

// Path returns the session file of root.
func Path(root string) string {
	return store.Path(root)
}

// Load reads the session saved in root, or returns a new one when none
// exists. A non-empty pattern replaces the saved one.
func Load(root, pattern string) (*Session, error) {
	sess, err := store.Load(root)
	if errors.Is(err, persist.ErrNoState) {
		return New(root, pattern), nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: load session: %w", xds.ErrIO, err)
	}

	sess.Root = root
	if pattern != "" {
		sess.Pattern = pattern
	}

	return sess, nil
}

// Save writes the session into its root.
func (s *Session) Save() error {
	s.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	err := store.Save(s.Root, s)
	if err != nil {
		return fmt.Errorf("%w: save session: %w", xds.ErrIO, err)
	}

	return nil
}

// SelectDataset records a ranked dataset as the reference candidate. Any
// previous reference file is forgotten until a new one is synthesized.
func (s *Session) SelectDataset(path string, rank int) {
	s.Dataset = path
	s.Rank = rank
	s.Manual = false
	s.ReferenceFile = ""
}

// SelectManual records a hand-picked dataset. A reflection file is used as
// the reference directly; a CORRECT.LP still needs a synthesis.
func (s *Session) SelectManual(path string) {
	s.Dataset = path
	s.Rank = 0
	s.Manual = true
	s.ReferenceFile = ""

	if filepath.Base(path) != xds.CorrectLP {
		s.ReferenceFile = path
	}
}

// SetReference records a synthesized reference file.
func (s *Session) SetReference(path string) {
	s.ReferenceFile = path
}

// Source returns the reflection file a reference is synthesized from.
func (s *Session) Source() (string, error) {
	if s.Dataset == "" {
		return "", fmt.Errorf("%w: no reference dataset selected", xds.ErrMissingParameter)
	}

	if s.Manual && filepath.Base(s.Dataset) != xds.CorrectLP {
		return s.Dataset, nil
	}

	return reference.SourceFor(s.Dataset), nil
}

// Reference returns the reference file for reprocessing.
func (s *Session) Reference() (string, error) {
	if s.ReferenceFile == "" {
		return "", fmt.Errorf("%w: no reference file (run the reference command first)", xds.ErrMissingParameter)
	}

	return s.ReferenceFile, nil
}

// MergeOverrides replaces the overrides whose new value is non-empty.
func (s *Session) MergeOverrides(o reference.Overrides) {
	if o.SpaceGroup != "" {
		s.Overrides.SpaceGroup = o.SpaceGroup
	}

	if o.A != "" {
		s.Overrides.A = o.A
	}

	if o.B != "" {
		s.Overrides.B = o.B
	}

	if o.C != "" {
		s.Overrides.C = o.C
	}
}
