package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/xdsref/pkg/ranking"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

const defaultTop = 10

// RankedDataset is one candidate in the xdsref_rank result.
type RankedDataset struct {
	Rank   int     `json:"rank"`
	Path   string  `json:"path"`
	Metric float64 `json:"metric"`
	Total  string  `json:"total"`
}

// UnrankedDataset is a candidate without a readable metric.
type UnrankedDataset struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RankOutput is the xdsref_rank result.
type RankOutput struct {
	Candidates int               `json:"candidates"`
	Ranked     int               `json:"ranked"`
	Best       []RankedDataset   `json:"best"`
	Unranked   []UnrankedDataset `json:"unranked,omitempty"`
}

func (s *Server) handleRank(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input RankInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	rootErr := validateRoot(input.Root)
	if rootErr != nil {
		return errorResult(rootErr)
	}

	pattern, patternErr := patternOrDefault(input.Pattern, xds.CorrectLP)
	if patternErr != nil {
		return errorResult(patternErr)
	}

	rk, err := ranking.RankDir(ctx, input.Root, pattern, ranking.Options{
		MetricColumn: input.MetricColumn,
		Workers:      s.workers,
		Logger:       s.logger,
	})
	if errors.Is(err, xds.ErrNotFound) {
		return jsonResult(RankOutput{})
	}

	if err != nil {
		return errorResult(err)
	}

	top := input.Top
	if top <= 0 {
		top = defaultTop
	}

	return jsonResult(summarizeRanking(rk, top))
}

func summarizeRanking(rk *ranking.Ranking, top int) RankOutput {
	out := RankOutput{Candidates: rk.Len(), Ranked: rk.Valid()}

	for i, entry := range rk.Top(top) {
		out.Best = append(out.Best, RankedDataset{
			Rank:   i + 1,
			Path:   entry.Path,
			Metric: entry.Metric,
			Total:  entry.Total.Text,
		})
	}

	for _, entry := range rk.Unranked() {
		out.Unranked = append(out.Unranked, UnrankedDataset{Path: entry.Path, Reason: entry.Reason})
	}

	return out
}
