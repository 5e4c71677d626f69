package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/xdsref/pkg/cellstats"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// AxisSummary is the statistics of one unit cell length.
type AxisSummary struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CellStatsOutput is the xdsref_cell_stats result.
type CellStatsOutput struct {
	SummaryPath string                      `json:"summary_path"`
	Count       int                         `json:"count"`
	A           AxisSummary                 `json:"a"`
	B           AxisSummary                 `json:"b"`
	C           AxisSummary                 `json:"c"`
	SpaceGroups []cellstats.SpaceGroupCount `json:"space_groups"`
	Skipped     int                         `json:"skipped_rows"`
	Failed      []string                    `json:"failed_files,omitempty"`
}

func (s *Server) handleCellStats(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CellStatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	rootErr := validateRoot(input.Root)
	if rootErr != nil {
		return errorResult(rootErr)
	}

	pattern, patternErr := patternOrDefault(input.Pattern, xds.CorrectLP)
	if patternErr != nil {
		return errorResult(patternErr)
	}

	rep, err := cellstats.Collect(ctx, input.Root, pattern, cellstats.Options{
		SkipMalformed: input.SkipMalformed,
		Logger:        s.logger,
	})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(summarizeCells(rep))
}

func summarizeCells(rep *cellstats.Report) CellStatsOutput {
	out := CellStatsOutput{
		SummaryPath: rep.SummaryPath,
		Count:       rep.Count,
		A:           axisSummary(rep.A),
		B:           axisSummary(rep.B),
		C:           axisSummary(rep.C),
		SpaceGroups: rep.SpaceGroups,
		Skipped:     len(rep.Skipped),
	}

	for _, fe := range rep.Failed {
		out.Failed = append(out.Failed, fe.Error())
	}

	return out
}

func axisSummary(axis cellstats.Axis) AxisSummary {
	return AxisSummary{Min: axis.Min, Max: axis.Max, Mean: axis.Mean, Std: axis.Std}
}
