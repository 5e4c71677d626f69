// Package correctlp extracts the resolution shell statistics table from XDS
// CORRECT.LP files.
package correctlp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// Header is the column header line that introduces the statistics table.
const Header = "RESOLUTION     NUMBER OF REFLECTIONS    COMPLETENESS R-FACTOR  R-FACTOR COMPARED I/SIGMA   R-meas  CC(1/2)  Anomal  SigAno   Nano"

// Column indices of the whitespace-split table rows.
const (
	ColResolution = iota
	ColObserved
	ColUnique
	ColPossible
	ColCompleteness
	ColRFactorObserved
	ColRFactorExpected
	ColCompared
	ColISigma
	ColRMeas
	ColCCHalf
	ColAnomalCorr
	ColSigAno
	ColNano
)

// Columns holds the short display names of the table columns.
var Columns = []string{
	"RES", "RO", "RU", "RP", "COM", "RFO", "RFE", "RFC",
	"ISIG", "RMEAS", "CC12", "ANO", "SIGA", "NANO",
}

// subHeaderLines is the number of lines following Header that are not data.
const subHeaderLines = 2

const totalToken = "total"

const maxLineBytes = 1 << 20

var normalizedHeader = normalize(Header)

// Row is one table line.
type Row struct {
	Text   string   `json:"text"`
	Fields []string `json:"fields"`
}

// IsTotal reports whether the row is the terminal total row.
func (r Row) IsTotal() bool {
	return strings.Contains(r.Text, totalToken)
}

// Float parses field col as a number.
func (r Row) Float(col int) (float64, error) {
	if col < 0 || col >= len(r.Fields) {
		return 0, fmt.Errorf("%w: column %d absent from %d-field row", xds.ErrParse, col, len(r.Fields))
	}

	value, err := strconv.ParseFloat(r.Fields[col], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: column %d value %q", xds.ErrParse, col, r.Fields[col])
	}

	return value, nil
}

// Table is the statistics table of one file, in file order.
type Table struct {
	Rows []Row `json:"rows"`
}

// Empty reports whether no rows were collected.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Total returns the total row when the table reached one.
func (t Table) Total() (Row, bool) {
	if len(t.Rows) == 0 {
		return Row{}, false
	}

	last := t.Rows[len(t.Rows)-1]
	if !last.IsTotal() {
		return Row{}, false
	}

	return last, true
}

type state int

const (
	searching state = iota
	skipping
	collecting
	done
)

// ExtractReader runs the extractor over r. A reader without the header yields
// an empty table; a table without a total row yields the rows read before EOF.
// The error reports read failures only, alongside the rows read so far.
func ExtractReader(r io.Reader) (Table, error) {
	var (
		table   Table
		current = searching
		skipped int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	for current != done && scanner.Scan() {
		line := scanner.Text()

		switch current {
		case searching:
			if strings.Contains(normalize(line), normalizedHeader) {
				current = skipping
			}
		case skipping:
			skipped++
			if skipped == subHeaderLines {
				current = collecting
			}
		case collecting:
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}

			if strings.Contains(line, totalToken) {
				table.Rows = append(table.Rows, Row{Text: line, Fields: strings.Fields(line)})
				current = done

				continue
			}

			if unicode.IsDigit([]rune(trimmed)[0]) {
				table.Rows = append(table.Rows, Row{Text: line, Fields: strings.Fields(line)})
			}
		case done:
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return table, fmt.Errorf("%w: %w", xds.ErrIO, scanErr)
	}

	return table, nil
}

// Read extracts the table of the file at path and reports I/O failures.
func Read(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", xds.ErrIO, err)
	}
	defer file.Close()

	table, readErr := ExtractReader(file)
	if readErr != nil {
		return Table{}, fmt.Errorf("%s: %w", path, readErr)
	}

	return table, nil
}

// Extract extracts the table of the file at path. A file that cannot be read
// contributes an empty table.
func Extract(path string) Table {
	table, err := Read(path)
	if err != nil {
		return Table{}
	}

	return table
}

func normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
