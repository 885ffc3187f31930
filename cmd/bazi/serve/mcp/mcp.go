// Package mcpcmder provides the "serve mcp" command, which serves the MCP
// tools over stdio for desktop agents.
package mcpcmder

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/api/mcp"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/setup"
)

type mcpCommander struct {
	storageDriver string
	model         string
	mindmapModel  string
}

const mcpLongDesc string = `Serve the bazi MCP tools over stdio.

Point an MCP client at this command to give it the chart, analyze, mindmap
and readings tools. Logs go to stderr so stdout carries only protocol
messages.

Example client entry:
  {"command": "bazi", "args": ["serve", "mcp"]}`

const mcpShortDesc string = "Serve the MCP tools over stdio"

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup.FromCommand(cmd,
				config.FlagStorageDriver,
				config.FlagModel,
				config.FlagMindmapModel,
			)
			if err != nil {
				return err
			}

			svc, err := env.Services(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Archive.Close(); err != nil {
					env.Logger.Warn("closing archive", "error", err)
				}
			}()

			server, err := mcp.NewServer(mcp.Config{
				Calendar:   svc.Calendar,
				Analyzer:   svc.Analyzer,
				Mindmapper: svc.Mindmapper,
				Driver:     svc.Archive.Driver,
				Archive:    svc.Archive.Pool,
				Logger:     env.Logger,
			})
			if err != nil {
				return fmt.Errorf("creating MCP server: %w", err)
			}

			env.Logger.Info("serving MCP over stdio")
			return serve(cmd.Context(), server, &sdk.StdioTransport{})
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagMindmapModel, &cmder.mindmapModel)

	return cmd
}

// serve runs server on t until the client disconnects or ctx ends.
func serve(ctx context.Context, server *mcp.Server, t sdk.Transport) error {
	err := server.MCPServer().Run(ctx, t)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
