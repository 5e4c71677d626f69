package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/xdsref/pkg/mcp"
	"github.com/Sumatoshi-tech/xdsref/pkg/observability"
	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

const statsTable = ` SPACE_GROUP_NUMBER=   19
 UNIT_CELL_CONSTANTS=    50.000    60.000    70.000  90.000  90.000  90.000

 RESOLUTION     NUMBER OF REFLECTIONS    COMPLETENESS R-FACTOR  R-FACTOR COMPARED I/SIGMA   R-meas  CC(1/2)  Anomal  SigAno   Nano
   LIMIT     OBSERVED  UNIQUE  POSSIBLE     OF DATA   observed  expected                                      Corr

     6.04       20254    2833      2854       99.3%%       3.6%%      4.0%%    20250   44.36      3.9%%    99.9*    -6    0.815    1254
    total      156261   22556     23243       97.0%%       6.3%%      6.7%%   155930   %s      6.8%%    99.9*    -2    0.776    9898
`

const asciiHeader = `!FORMAT=XDS_ASCII    MERGE=FALSE    FRIEDEL'S_LAW=TRUE
!SPACE_GROUP_NUMBER=   19
!UNIT_CELL_CONSTANTS=    50.000    60.000    70.000  90.000  90.000  90.000
!END_OF_HEADER
     1     0     3  1.234E+03  5.678E+01
!END_OF_DATA
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// buildRoot lays out two datasets; ds_b has the higher I/SIGMA.
func buildRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ds_a", xds.CorrectLP), fmt.Sprintf(statsTable, "8.30"))
	writeFile(t, filepath.Join(root, "ds_b", xds.CorrectLP), fmt.Sprintf(statsTable, "12.50"))
	writeFile(t, filepath.Join(root, "ds_b", xds.XDSASCII), asciiHeader)

	return root
}

func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func decodeText(t *testing.T, result *mcpsdk.CallToolResult, into any) {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), into))
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	session := connect(t, srv)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, srv.ListToolNames(), names)
	assert.Equal(t,
		[]string{mcp.ToolNameCellStats, mcp.ToolNameRank, mcp.ToolNameWriteReference},
		srv.ListToolNames())
}

func TestServer_CellStats(t *testing.T) {
	t.Parallel()

	root := buildRoot(t)
	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameCellStats, map[string]any{"root": root})
	require.False(t, result.IsError)

	var out mcp.CellStatsOutput

	decodeText(t, result, &out)
	assert.Equal(t, 2, out.Count)
	assert.InDelta(t, 50.0, out.A.Mean, 1e-9)
	assert.InDelta(t, 70.0, out.C.Max, 1e-9)
	require.Len(t, out.SpaceGroups, 1)
	assert.Equal(t, 19, out.SpaceGroups[0].Number)
	assert.FileExists(t, out.SummaryPath)
}

func TestServer_Rank(t *testing.T) {
	t.Parallel()

	root := buildRoot(t)
	session := connect(t, mcp.NewServer(mcp.ServerDeps{Workers: 2}))

	result := callTool(t, session, mcp.ToolNameRank, map[string]any{"root": root, "top": 1})
	require.False(t, result.IsError)

	var out mcp.RankOutput

	decodeText(t, result, &out)
	assert.Equal(t, 2, out.Candidates)
	assert.Equal(t, 2, out.Ranked)
	require.Len(t, out.Best, 1)
	assert.Equal(t, filepath.Join(root, "ds_b", xds.CorrectLP), out.Best[0].Path)
	assert.InDelta(t, 12.5, out.Best[0].Metric, 1e-9)
}

func TestServer_RankEmptyRoot(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameRank, map[string]any{"root": t.TempDir()})
	require.False(t, result.IsError)

	var out mcp.RankOutput

	decodeText(t, result, &out)
	assert.Zero(t, out.Candidates)
	assert.Empty(t, out.Best)
}

func TestServer_WriteReference(t *testing.T) {
	t.Parallel()

	root := buildRoot(t)
	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameWriteReference, map[string]any{
		"dataset":     filepath.Join(root, "ds_b", xds.CorrectLP),
		"space_group": "5",
		"a":           "51.2",
		"b":           "61.3",
		"c":           "71.4",
	})
	require.False(t, result.IsError)

	var out mcp.WriteReferenceOutput

	decodeText(t, result, &out)

	target := filepath.Join(root, xds.ReferenceName)
	assert.Equal(t, target, out.Result.Path)
	assert.Equal(t, 1, out.Result.SpaceGroupLines)
	assert.Equal(t, 1, out.Result.UnitCellLines)
	assert.Len(t, out.Diff, 4)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "!SPACE_GROUP_NUMBER=\t5\n")
	assert.Contains(t, string(data), "!UNIT_CELL_CONSTANTS=\t51.2\t61.3\t71.4\t90.000\t90.000\t90.000\n")
}

func TestServer_InputErrors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "relative root", tool: mcp.ToolNameCellStats, args: map[string]any{"root": "data"}, want: "absolute"},
		{name: "missing root", tool: mcp.ToolNameRank, args: map[string]any{"root": ""}, want: "required"},
		{
			name: "pattern with path", tool: mcp.ToolNameRank,
			args: map[string]any{"root": t.TempDir(), "pattern": "x/CORRECT.LP"}, want: "plain file name",
		},
		{
			name: "no source", tool: mcp.ToolNameWriteReference,
			args: map[string]any{"space_group": "5", "a": "1.0", "b": "1.0", "c": "1.0"}, want: "source or dataset",
		},
		{
			name: "bad override", tool: mcp.ToolNameWriteReference,
			args: map[string]any{"source": "/nonexistent/XDS_ASCII.HKL", "space_group": "5", "a": "x", "b": "1", "c": "1"},
			want: "parse",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := callTool(t, session, tc.tool, tc.args)
			require.True(t, result.IsError)

			text, ok := result.Content[0].(*mcpsdk.TextContent)
			require.True(t, ok)
			assert.Contains(t, text.Text, tc.want)
		})
	}
}

func TestServer_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Metrics: red}))

	callTool(t, session, mcp.ToolNameRank, map[string]any{"root": "relative"})

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	var errCount int64

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "xdsref.errors.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				errCount += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), errCount)
}
