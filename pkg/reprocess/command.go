// Package reprocess builds and supervises the external reprocessing script
// that reindexes datasets against a reference file.
package reprocess

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// Defaults applied when a value is left empty.
const (
	DefaultResolution   = "1.4"
	DefaultISigCut      = "1"
	DefaultTemplateHost = "id232control"
)

// Command describes one invocation of the reprocessing script.
type Command struct {
	Script       string `json:"script"        yaml:"script"`
	Reference    string `json:"reference"     yaml:"reference"`
	Resolution   string `json:"resolution"    yaml:"resolution"`
	ISigCut      string `json:"i_sig_cut"     yaml:"i_sig_cut"`
	AutoProc     bool   `json:"autoproc"      yaml:"autoproc"`
	Anom         bool   `json:"anom"          yaml:"anom"`
	SkipDone     bool   `json:"skipdone"      yaml:"skipdone"`
	TemplateHost string `json:"template_host" yaml:"template_host"`
}

// Validate checks that the script and the reference file are set.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Script) == "" {
		return fmt.Errorf("%w: reprocessing script", xds.ErrMissingParameter)
	}

	if strings.TrimSpace(c.Reference) == "" {
		return fmt.Errorf("%w: reference file", xds.ErrMissingParameter)
	}

	return nil
}

// CheckReference validates the command and checks that the reference file
// exists and is a regular file.
func (c Command) CheckReference() error {
	validateErr := c.Validate()
	if validateErr != nil {
		return validateErr
	}

	info, statErr := os.Stat(c.Reference)
	if errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("%w: reference file %s (run the reference command first)", xds.ErrNotFound, c.Reference)
	}

	if statErr != nil {
		return fmt.Errorf("reference file %s: %w", c.Reference, statErr)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: reference file %s is a directory", xds.ErrNotFound, c.Reference)
	}

	return nil
}

// Args returns the script arguments:
// --ref <ref> --resolution <v> --i_sig_cut <v> [--autoproc] [--anom] [--skipdone] --template_host <v>.
func (c Command) Args() []string {
	args := []string{
		"--ref", c.Reference,
		"--resolution", orDefault(c.Resolution, DefaultResolution),
		"--i_sig_cut", orDefault(c.ISigCut, DefaultISigCut),
	}

	if c.AutoProc {
		args = append(args, "--autoproc")
	}

	if c.Anom {
		args = append(args, "--anom")
	}

	if c.SkipDone {
		args = append(args, "--skipdone")
	}

	return append(args, "--template_host", orDefault(c.TemplateHost, DefaultTemplateHost))
}

// String renders the command line for display.
func (c Command) String() string {
	return strings.Join(append([]string{c.Script}, c.Args()...), " ")
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}

	return fallback
}
