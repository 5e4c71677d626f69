package cellscan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// summaryColumns is the number of whitespace-delimited values after the path:
// space group, a, b and c.
const summaryColumns = 4

// Record is one parsed summary log line.
type Record struct {
	Path       string  `json:"path"        yaml:"path"`
	SpaceGroup int     `json:"space_group" yaml:"space_group"`
	A          float64 `json:"a"           yaml:"a"`
	B          float64 `json:"b"           yaml:"b"`
	C          float64 `json:"c"           yaml:"c"`
}

// MalformedLine describes a summary log line that could not be parsed.
type MalformedLine struct {
	Line int
	Text string
	Err  error
}

func (ml MalformedLine) Error() string {
	return fmt.Sprintf("summary line %d: %v", ml.Line, ml.Err)
}

func (ml MalformedLine) Unwrap() error {
	return ml.Err
}

// WriteRecordLine writes one summary log line:
// "<path>\t<sg>  <a>\t<b>\t<c>\n". Missing values are written empty.
func WriteRecordLine(w io.Writer, path, spaceGroup string, lengths []string) error {
	_, err := fmt.Fprintf(w, "%s\t%s  %s\n", path, spaceGroup, strings.Join(lengths, "\t"))
	if err != nil {
		return fmt.Errorf("write summary line: %w", err)
	}

	return nil
}

// ParseRecord parses one summary log line.
func ParseRecord(line string) (Record, error) {
	path, rest, ok := strings.Cut(line, "\t")
	if !ok || path == "" {
		return Record{}, fmt.Errorf("%w: missing dataset path", xds.ErrParse)
	}

	fields := strings.Fields(rest)
	if len(fields) != summaryColumns {
		return Record{}, fmt.Errorf("%w: %s: expected %d values, got %d",
			xds.ErrParse, path, summaryColumns, len(fields))
	}

	spaceGroup, sgErr := strconv.Atoi(fields[0])
	if sgErr != nil {
		return Record{}, fmt.Errorf("%w: %s: space group %q is not an integer", xds.ErrParse, path, fields[0])
	}

	var lengths [3]float64

	for i := range lengths {
		value, floatErr := strconv.ParseFloat(fields[i+1], 64)
		if floatErr != nil {
			return Record{}, fmt.Errorf("%w: %s: unit cell value %q is not a number", xds.ErrParse, path, fields[i+1])
		}

		lengths[i] = value
	}

	return Record{
		Path:       path,
		SpaceGroup: spaceGroup,
		A:          lengths[0],
		B:          lengths[1],
		C:          lengths[2],
	}, nil
}

// ParseSummary parses a summary log. Lines that fail to parse are returned
// separately; the error is reserved for read failures. Blank lines are ignored.
func ParseSummary(r io.Reader) ([]Record, []MalformedLine, error) {
	var (
		records   []Record
		malformed []MalformedLine
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, parseErr := ParseRecord(line)
		if parseErr != nil {
			malformed = append(malformed, MalformedLine{Line: lineNo, Text: line, Err: parseErr})

			continue
		}

		records = append(records, record)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, nil, fmt.Errorf("%w: read summary log: %w", xds.ErrIO, scanErr)
	}

	return records, malformed, nil
}

// ReadSummary parses the summary log at path.
func ReadSummary(path string) ([]Record, []MalformedLine, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open summary log: %w", xds.ErrIO, err)
	}
	defer file.Close()

	return ParseSummary(file)
}
