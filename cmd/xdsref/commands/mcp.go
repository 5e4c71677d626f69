package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdsref/pkg/mcp"
)

const mcpCommandName = "mcp"

func newMCPCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   mcpCommandName,
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  xdsref_cell_stats       Unit cell statistics of a processing root
  xdsref_rank             Dataset ranking by total row I/SIGMA
  xdsref_write_reference  Reference file synthesis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := rt.app

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  app.Logger,
				Metrics: app.RED,
				Tracer:  app.Tracer,
				Workers: app.Config.Rank.Workers,
			})

			return srv.Run(cmd.Context())
		},
	}
}
