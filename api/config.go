// Package api provides the HTTP API server for charts, streamed readings and
// the reading archive.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Calendar resolves birth dates. Required.
	Calendar reading.Lookuper

	// Analyzer streams analyses. Required.
	Analyzer *reading.Analyzer

	// Mindmapper streams mind maps. Required.
	Mindmapper *reading.Mindmapper

	// Driver serves the /readings endpoints. Optional.
	Driver storage.Driver

	// Archive receives completed readings. Optional.
	Archive *archive.Pool

	// MCP is mounted at /mcp when set.
	MCP http.Handler

	Logger *slog.Logger
}

func (c Config) validate() error {
	switch {
	case c.Calendar == nil:
		return errors.New("calendar is required")
	case c.Analyzer == nil:
		return errors.New("analyzer is required")
	case c.Mindmapper == nil:
		return errors.New("mindmapper is required")
	case c.Logger == nil:
		return errors.New("logger is required")
	}
	return nil
}
