package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/calendar"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
)

const (
	requestIDHeader  = "X-Request-Id"
	requestIDLocal   = "request_id"
	defaultListLimit = 50
	maxListLimit     = 500
)

// requestID tags every request with an ID, reusing one sent by the client.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDLocal, id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleChart computes a chart for the posted birth.
func (s *Server) handleChart(c *fiber.Ctx) error {
	var req ChartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err)
	}

	in, err := req.parse()
	if err != nil {
		return badRequest(err)
	}

	chart, res, err := s.chartFor(c, in)
	if err != nil {
		return err
	}

	chartsServed.Add(1)
	return c.JSON(reading.Summarize(chart, res, in.gender))
}

func (s *Server) chartFor(c *fiber.Ctx, in birthInput) (bazi.Chart, calendar.Result, error) {
	chart, res, err := reading.ChartFor(c.UserContext(), s.config.Calendar, in.birth)
	if err != nil {
		s.config.Logger.Warn("chart lookup failed",
			"request_id", requestIDOf(c),
			"error", err,
		)
		return bazi.Chart{}, calendar.Result{}, err
	}
	return chart, res, nil
}

// handleListReadings lists archived readings, newest first.
func (s *Server) handleListReadings(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "reading archive is disabled")
	}

	opts := storage.ListOptions{
		Kind:  storage.Kind(c.Query("kind")),
		Limit: c.QueryInt("limit", defaultListLimit),
	}
	switch opts.Kind {
	case "", storage.KindAnalysis, storage.KindMindmap:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "kind must be analysis or mindmap")
	}
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = defaultListLimit
	}

	readings, err := s.config.Driver.List(c.UserContext(), opts)
	if err != nil {
		s.config.Logger.Error("listing readings failed", "error", err)
		return err
	}

	out := make([]ReadingSummary, 0, len(readings))
	for _, r := range readings {
		pillars := r.Chart.Pillars()
		names := make([]string, 0, len(pillars))
		for _, p := range pillars {
			names = append(names, p.String())
		}
		out = append(out, ReadingSummary{
			ID:        r.ID,
			Kind:      string(r.Kind),
			Pillars:   names,
			Gender:    string(r.Gender),
			Model:     r.Model,
			Question:  r.Question,
			CreatedAt: r.CreatedAt,
		})
	}

	return c.JSON(out)
}

// handleGetReading returns one archived reading.
func (s *Server) handleGetReading(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "reading archive is disabled")
	}

	r, err := s.config.Driver.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(r)
}
