package reference

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// Change kinds of a DiffLine.
const (
	Removed = '-'
	Added   = '+'
)

// DiffLine is one changed line between a source and its reference file.
type DiffLine struct {
	Kind byte   `json:"kind"`
	Text string `json:"text"`
}

func (d DiffLine) String() string {
	return string(d.Kind) + " " + d.Text
}

// HeaderDiff returns the lines that differ between src and dst, in order.
// For a synthesized reference these are the rewritten marker lines.
func HeaderDiff(src, dst string) ([]DiffLine, error) {
	before, srcErr := os.ReadFile(src)
	if srcErr != nil {
		return nil, fmt.Errorf("%w: read source: %w", xds.ErrIO, srcErr)
	}

	after, dstErr := os.ReadFile(dst)
	if dstErr != nil {
		return nil, fmt.Errorf("%w: read reference: %w", xds.ErrIO, dstErr)
	}

	return DiffText(string(before), string(after)), nil
}

// DiffText compares two texts line by line.
func DiffText(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	srcRunes, dstRunes, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(srcRunes, dstRunes, false), lines)

	var changed []DiffLine

	for _, diff := range diffs {
		var kind byte

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			kind = Removed
		case diffmatchpatch.DiffInsert:
			kind = Added
		case diffmatchpatch.DiffEqual:
			continue
		}

		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			changed = append(changed, DiffLine{Kind: kind, Text: strings.TrimRight(line, "\r\n")})
		}
	}

	return changed
}
