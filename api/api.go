package api

import (
	"expvar"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// Counters exported at /debug/vars.
var (
	chartsServed      = expvar.NewInt("bazi_charts_served")
	readingsStarted   = expvar.NewMap("bazi_readings_started")
	readingsCompleted = expvar.NewMap("bazi_readings_completed")
	streamErrors      = expvar.NewInt("bazi_stream_errors")
)

// Server is the API server for charts and streamed readings.
type Server struct {
	config Config
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config) (*Server, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		app:    app,
	}

	app.Use(s.requestID)

	app.Get("/ping", s.handlePing)
	app.Post("/chart", s.handleChart)
	app.Post("/analysis", s.handleAnalysis)
	app.Post("/mindmap", s.handleMindmap)
	app.Get("/readings", s.handleListReadings)
	app.Get("/readings/:id", s.handleGetReading)
	app.Get("/debug/vars", adaptor.HTTPHandler(expvar.Handler()))

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.config.Logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCP != nil,
		"archive", s.config.Driver != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
