// Package xds defines the file names, line markers and error kinds shared by
// the XDS output parsers.
package xds

import (
	"errors"
	"strings"
)

// Well-known XDS output file names.
const (
	CorrectLP     = "CORRECT.LP"
	XDSASCII      = "XDS_ASCII.HKL"
	ReprocHKL     = "REPROC.HKL"
	ReferenceName = "REF.hkl"
)

// PatternPresets lists the file name patterns offered for unit cell collection.
var PatternPresets = []string{CorrectLP, ReprocHKL, XDSASCII}

// Error kinds. Every error returned by the pipeline packages wraps one of these.
var (
	// ErrParse indicates malformed or absent numeric data.
	ErrParse = errors.New("parse error")
	// ErrMissingParameter indicates a required override value is absent.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrNotFound indicates that no dataset or required file satisfies the request.
	ErrNotFound = errors.New("not found")
	// ErrIO indicates a file could not be opened, read or written.
	ErrIO = errors.New("i/o failure")
)

// Marker identifies a keyword-tagged header line such as
// "SPACE_GROUP_NUMBER=   19".
//
// A marker matches when its keyword occurs anywhere in the line; only the
// first occurrence is considered. Text before the keyword is the prefix
// ("!" in XDS_ASCII.HKL headers, indentation in CORRECT.LP) and text after it
// holds the values.
type Marker struct {
	Keyword string
}

// Header markers.
var (
	SpaceGroupMarker = Marker{Keyword: "SPACE_GROUP_NUMBER="}
	UnitCellMarker   = Marker{Keyword: "UNIT_CELL_CONSTANTS="}
)

// Match reports whether line carries the marker.
func (m Marker) Match(line string) bool {
	return strings.Contains(line, m.Keyword)
}

// Split returns the text before and after the keyword.
func (m Marker) Split(line string) (prefix, rest string, ok bool) {
	idx := strings.Index(line, m.Keyword)
	if idx < 0 {
		return "", "", false
	}

	return line[:idx], line[idx+len(m.Keyword):], true
}

// Fields returns the whitespace-delimited tokens following the keyword.
// It returns nil when the line does not carry the marker.
func (m Marker) Fields(line string) []string {
	_, rest, ok := m.Split(line)
	if !ok {
		return nil
	}

	return strings.Fields(rest)
}

// String returns the marker keyword.
func (m Marker) String() string {
	return m.Keyword
}
