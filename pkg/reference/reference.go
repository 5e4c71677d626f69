// Package reference writes the reindexing reference reflection file: a copy
// of a dataset's XDS_ASCII.HKL with the space group and unit cell lengths
// replaced by operator-chosen values.
package reference

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// cellNumber matches one decimal unit cell value.
var cellNumber = regexp.MustCompile(`\d+\.\d+`)

const (
	cellValues   = 6
	cellLengths  = 3
	lineEnding   = "\n"
	fieldDivider = "\t"

	outputMode os.FileMode = 0o644
)

// Overrides are the replacement header values. They are written exactly as
// given so that the operator's number formatting is kept.
type Overrides struct {
	SpaceGroup string `json:"space_group" yaml:"space_group"`
	A          string `json:"a"           yaml:"a"`
	B          string `json:"b"           yaml:"b"`
	C          string `json:"c"           yaml:"c"`
}

// Lengths returns the unit cell length overrides in a, b, c order.
func (o Overrides) Lengths() []string {
	return []string{o.A, o.B, o.C}
}

// Validate checks that every override is present and numeric.
func (o Overrides) Validate() error {
	if err := o.validateSpaceGroup(); err != nil {
		return err
	}

	return o.validateCell()
}

func (o Overrides) validateSpaceGroup() error {
	if strings.TrimSpace(o.SpaceGroup) == "" {
		return fmt.Errorf("%w: space group", xds.ErrMissingParameter)
	}

	sg, err := strconv.Atoi(strings.TrimSpace(o.SpaceGroup))
	if err != nil || sg <= 0 {
		return fmt.Errorf("%w: space group %q is not a positive integer", xds.ErrParse, o.SpaceGroup)
	}

	return nil
}

var lengthNames = []string{"a", "b", "c"}

func (o Overrides) missingLength() error {
	for i, value := range o.Lengths() {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: unit cell length %s", xds.ErrMissingParameter, lengthNames[i])
		}
	}

	return nil
}

func (o Overrides) validateCell() error {
	missingErr := o.missingLength()
	if missingErr != nil {
		return missingErr
	}

	for i, value := range o.Lengths() {
		length, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || length <= 0 {
			return fmt.Errorf("%w: unit cell length %s %q is not a positive number", xds.ErrParse, lengthNames[i], value)
		}
	}

	return nil
}

// Result describes a written reference file.
type Result struct {
	Path string `json:"path"`
	// Lines is the number of lines written.
	Lines int `json:"lines"`
	// SpaceGroupLines and UnitCellLines count the substituted marker lines.
	SpaceGroupLines int `json:"space_group_lines"`
	UnitCellLines   int `json:"unit_cell_lines"`
}

// SourceFor returns the reflection file that accompanies a CORRECT.LP.
func SourceFor(correctLP string) string {
	return filepath.Join(filepath.Dir(correctLP), xds.XDSASCII)
}

// DefaultTarget returns the reference file location for a processing root.
func DefaultTarget(root string) string {
	return filepath.Join(root, xds.ReferenceName)
}

// Synthesize copies src to dst line by line, replacing the space group and
// unit cell marker lines with the overrides. Other lines are copied verbatim.
//
// dst is truncated before anything else happens. Output is staged in a
// temporary sibling and renamed over dst only once every line has been
// written, so a failure leaves dst empty rather than half-written.
func Synthesize(src, dst string, overrides Overrides) (Result, error) {
	if samePath(src, dst) {
		return Result{}, fmt.Errorf("%w: source and target are both %s", xds.ErrIO, dst)
	}

	truncErr := os.WriteFile(dst, nil, outputMode)
	if truncErr != nil {
		return Result{}, fmt.Errorf("%w: truncate %s: %w", xds.ErrIO, dst, truncErr)
	}

	in, openErr := os.Open(src)
	if openErr != nil {
		return Result{}, fmt.Errorf("%w: open source: %w", xds.ErrIO, openErr)
	}
	defer in.Close()

	tmp, tmpErr := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if tmpErr != nil {
		return Result{}, fmt.Errorf("%w: stage %s: %w", xds.ErrIO, dst, tmpErr)
	}

	result, copyErr := transform(in, tmp, overrides)
	chmodErr := tmp.Chmod(outputMode)
	closeErr := tmp.Close()

	if err := errors.Join(copyErr, chmodErr, closeErr); err != nil {
		os.Remove(tmp.Name())

		return Result{}, err
	}

	renameErr := os.Rename(tmp.Name(), dst)
	if renameErr != nil {
		os.Remove(tmp.Name())

		return Result{}, fmt.Errorf("%w: replace %s: %w", xds.ErrIO, dst, renameErr)
	}

	result.Path = dst

	return result, nil
}

func transform(r io.Reader, w io.Writer, overrides Overrides) (Result, error) {
	var result Result

	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return result, fmt.Errorf("%w: read source: %w", xds.ErrIO, readErr)
		}

		if line != "" {
			out, kind, lineErr := rewriteLine(line, overrides)
			if lineErr != nil {
				return result, fmt.Errorf("line %d: %w", result.Lines+1, lineErr)
			}

			_, writeErr := writer.WriteString(out)
			if writeErr != nil {
				return result, fmt.Errorf("%w: write reference: %w", xds.ErrIO, writeErr)
			}

			result.Lines++

			switch kind {
			case spaceGroupLine:
				result.SpaceGroupLines++
			case unitCellLine:
				result.UnitCellLines++
			case plainLine:
			}
		}

		if readErr != nil {
			break
		}
	}

	flushErr := writer.Flush()
	if flushErr != nil {
		return result, fmt.Errorf("%w: write reference: %w", xds.ErrIO, flushErr)
	}

	return result, nil
}

type lineKind int

const (
	plainLine lineKind = iota
	spaceGroupLine
	unitCellLine
)

func rewriteLine(line string, overrides Overrides) (string, lineKind, error) {
	if prefix, _, ok := xds.SpaceGroupMarker.Split(line); ok {
		if strings.TrimSpace(overrides.SpaceGroup) == "" {
			return "", spaceGroupLine, fmt.Errorf("%w: space group", xds.ErrMissingParameter)
		}

		return prefix + xds.SpaceGroupMarker.Keyword + fieldDivider + strings.TrimSpace(overrides.SpaceGroup) + lineEnding,
			spaceGroupLine, nil
	}

	if prefix, rest, ok := xds.UnitCellMarker.Split(line); ok {
		missingErr := overrides.missingLength()
		if missingErr != nil {
			return "", unitCellLine, missingErr
		}

		values := cellNumber.FindAllString(rest, -1)
		if len(values) < cellValues {
			return "", unitCellLine, fmt.Errorf("%w: unit cell line has %d of %d values", xds.ErrParse, len(values), cellValues)
		}

		fields := make([]string, 0, cellValues)
		for _, length := range overrides.Lengths() {
			fields = append(fields, strings.TrimSpace(length))
		}

		fields = append(fields, values[cellLengths:cellValues]...)

		return prefix + xds.UnitCellMarker.Keyword + fieldDivider + strings.Join(fields, fieldDivider) + lineEnding,
			unitCellLine, nil
	}

	return line, plainLine, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)

	return errA == nil && errB == nil && absA == absB
}
