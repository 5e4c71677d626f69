package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolNameCellStats      = "xdsref_cell_stats"
	ToolNameRank           = "xdsref_rank"
	ToolNameWriteReference = "xdsref_write_reference"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRoot indicates the root parameter is empty.
	ErrEmptyRoot = errors.New("root parameter is required and must not be empty")
	// ErrRootNotAbsolute indicates the root is not an absolute path.
	ErrRootNotAbsolute = errors.New("root must be an absolute path")
	// ErrRootNotDir indicates the root is missing or not a directory.
	ErrRootNotDir = errors.New("root must be an existing directory")
	// ErrNoSource indicates neither source nor dataset was given.
	ErrNoSource = errors.New("one of source or dataset is required")
	// ErrInvalidPattern indicates a pattern containing a path separator.
	ErrInvalidPattern = errors.New("pattern must be a plain file name")
)

// CellStatsInput is the input schema for xdsref_cell_stats.
type CellStatsInput struct {
	Root          string `json:"root"                     jsonschema:"absolute path of the processing root"`
	Pattern       string `json:"pattern,omitempty"        jsonschema:"log file name to scan for (default CORRECT.LP)"`
	SkipMalformed bool   `json:"skip_malformed,omitempty" jsonschema:"skip unparseable summary rows instead of failing"`
}

// RankInput is the input schema for xdsref_rank.
type RankInput struct {
	Root         string `json:"root"                    jsonschema:"absolute path of the processing root"`
	Pattern      string `json:"pattern,omitempty"       jsonschema:"statistics file name (default CORRECT.LP)"`
	Top          int    `json:"top,omitempty"           jsonschema:"number of best candidates to return (default 10)"`
	MetricColumn *int   `json:"metric_column,omitempty" jsonschema:"total row column used as the metric (default 8, I/SIGMA)"`
}

// WriteReferenceInput is the input schema for xdsref_write_reference.
type WriteReferenceInput struct {
	Source     string `json:"source,omitempty"  jsonschema:"reflection file to copy (default: XDS_ASCII.HKL next to dataset)"`
	Dataset    string `json:"dataset,omitempty" jsonschema:"CORRECT.LP of the chosen reference dataset"`
	Target     string `json:"target,omitempty"  jsonschema:"output file (default: REF.hkl in the dataset's parent directory)"`
	SpaceGroup string `json:"space_group"       jsonschema:"space group number"`
	A          string `json:"a"                 jsonschema:"unit cell length a"`
	B          string `json:"b"                 jsonschema:"unit cell length b"`
	C          string `json:"c"                 jsonschema:"unit cell length c"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateRoot(root string) error {
	if root == "" {
		return ErrEmptyRoot
	}

	if !filepath.IsAbs(root) {
		return fmt.Errorf("%w: %s", ErrRootNotAbsolute, root)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	return nil
}

func patternOrDefault(pattern, fallback string) (string, error) {
	if pattern == "" {
		return fallback, nil
	}

	if filepath.Base(pattern) != pattern {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	return pattern, nil
}
