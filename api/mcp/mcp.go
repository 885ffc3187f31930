// Package mcp provides an MCP (Model Context Protocol) server exposing chart
// calculation and readings as tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
	"github.com/papercomputeco/bazi/pkg/utils"
)

type Config struct {
	// Calendar resolves birth dates for every tool.
	Calendar reading.Lookuper

	// Analyzer enables the analyze tool. Optional.
	Analyzer *reading.Analyzer

	// Mindmapper enables the mindmap tool. Optional.
	Mindmapper *reading.Mindmapper

	// Driver enables the readings tool. Optional.
	Driver storage.Driver

	// Archive receives readings produced by tools. Optional.
	Archive *archive.Pool

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the chart tool and whichever
// reading tools its config enables.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "bazi",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Calendar == nil {
			return nil, errors.New("calendar is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        chartToolName,
			Description: chartDescription,
		}, s.handleChart)

		if c.Analyzer != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        analyzeToolName,
				Description: analyzeDescription,
			}, s.handleAnalyze)
		}

		if c.Mindmapper != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        mindmapToolName,
				Description: mindmapDescription,
			}, s.handleMindmap)
		}

		if c.Driver != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        readingsToolName,
				Description: readingsDescription,
			}, s.handleReadings)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// toolError reports a failed call to the model rather than as a protocol
// error, so the model can correct its arguments.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
