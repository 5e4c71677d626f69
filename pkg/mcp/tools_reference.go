package mcp

import (
	"context"
	"errors"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/xdsref/pkg/reference"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// WriteReferenceOutput is the xdsref_write_reference result.
type WriteReferenceOutput struct {
	Source string           `json:"source"`
	Result reference.Result `json:"result"`
	Diff   []string         `json:"diff"`
}

func (s *Server) handleWriteReference(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input WriteReferenceInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	src, dst, pathErr := referencePaths(input)
	if pathErr != nil {
		return errorResult(pathErr)
	}

	overrides := reference.Overrides{
		SpaceGroup: input.SpaceGroup,
		A:          input.A,
		B:          input.B,
		C:          input.C,
	}

	validateErr := overrides.Validate()
	if validateErr != nil && !errors.Is(validateErr, xds.ErrMissingParameter) {
		return errorResult(validateErr)
	}

	res, err := reference.Synthesize(src, dst, overrides)
	if err != nil {
		return errorResult(err)
	}

	s.logger.Info("reference written", "source", src, "target", dst, "lines", res.Lines)

	diff, diffErr := reference.HeaderDiff(src, dst)
	if diffErr != nil {
		return errorResult(diffErr)
	}

	out := WriteReferenceOutput{Source: src, Result: res, Diff: make([]string, 0, len(diff))}
	for _, line := range diff {
		out.Diff = append(out.Diff, line.String())
	}

	return jsonResult(out)
}

// referencePaths resolves the source and target of a write. The default
// target is REF.hkl in the directory above the dataset, which is the
// processing root in the usual <root>/<dataset>/CORRECT.LP layout.
func referencePaths(input WriteReferenceInput) (string, string, error) {
	src := input.Source
	if src == "" {
		if input.Dataset == "" {
			return "", "", ErrNoSource
		}

		src = reference.SourceFor(input.Dataset)
	}

	dst := input.Target
	if dst == "" {
		base := input.Dataset
		if base == "" {
			base = src
		}

		dst = reference.DefaultTarget(filepath.Dir(filepath.Dir(base)))
	}

	return src, dst, nil
}
