// Package servecmder provides the serve command, which runs the HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/api"
	"github.com/papercomputeco/bazi/api/mcp"
	mcpcmder "github.com/papercomputeco/bazi/cmd/bazi/serve/mcp"
	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/setup"
)

type serveCommander struct {
	listen        string
	mcp           bool
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	eventBrokers  string
	logFile       string
	model         string
	mindmapModel  string
	backend       string
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagMCP,
	config.FlagStorageDriver,
	config.FlagSQLitePath,
	config.FlagPostgresDSN,
	config.FlagEventBrokers,
	config.FlagLogFile,
	config.FlagModel,
	config.FlagMindmapModel,
	config.FlagBackend,
}

const serveLongDesc string = `Run the bazi HTTP API.

Endpoints:
  GET  /ping            Liveness check
  POST /chart           Compute the four pillars
  POST /analysis        Stream an analysis as server-sent events
  POST /mindmap         Stream a markdown mind map as server-sent events
  GET  /readings        List archived readings
  GET  /readings/:id    Fetch one archived reading
  GET  /debug/vars      Runtime counters
  /mcp                  MCP over streamable HTTP, with --mcp

Use "bazi serve mcp" to serve the MCP tools over stdio instead.

Examples:
  bazi serve
  bazi serve --listen :9000 --mcp --storage-driver sqlite`

const serveShortDesc string = "Run the bazi HTTP API"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup.FromCommand(cmd, serveFlags...)
			if err != nil {
				return err
			}
			return run(cmd.Context(), env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMCP, &cmder.mcp)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLitePath, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventBrokers, &cmder.eventBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagMindmapModel, &cmder.mindmapModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagBackend, &cmder.backend)

	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}

func run(ctx context.Context, env *setup.Env) error {
	svc, err := env.Services(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Archive.Close(); err != nil {
			env.Logger.Warn("closing archive", "error", err)
		}
	}()

	server, err := newServer(env.Config, svc, env.Logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		env.Logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		env.Logger.Info("context cancelled, shutting down")
	}

	return server.Shutdown()
}

// newServer wires svc into the API server, mounting MCP when enabled.
func newServer(cfg *config.Config, svc *setup.Services, logger *slog.Logger) (*api.Server, error) {
	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
		Calendar:   svc.Calendar,
		Analyzer:   svc.Analyzer,
		Mindmapper: svc.Mindmapper,
		Driver:     svc.Archive.Driver,
		Archive:    svc.Archive.Pool,
		Logger:     logger,
	}

	if cfg.API.MCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Calendar:   svc.Calendar,
			Analyzer:   svc.Analyzer,
			Mindmapper: svc.Mindmapper,
			Driver:     svc.Archive.Driver,
			Archive:    svc.Archive.Pool,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCP = mcpServer.Handler()
	}

	return api.NewServer(apiConfig)
}
