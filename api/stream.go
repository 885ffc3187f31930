package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/eventstream"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
)

// SSE event names.
const (
	eventThinking = "thinking"
	eventContent  = "content"
	eventMarkdown = "markdown"
	eventError    = "error"
	eventDone     = "done"
)

// sseWriter frames server-sent events onto a buffered writer and flushes
// after each one.
type sseWriter struct {
	w *bufio.Writer
}

func (s sseWriter) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.w.Flush()
}

// stream switches c to an SSE response and runs produce in a goroutine that
// outlives the handler. The context passed to produce is cancelled when the
// client stops reading, which in turn cancels the upstream request.
func (s *Server) stream(c *fiber.Ctx, cancel context.CancelFunc, produce func(sseWriter) error) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// c is recycled once the handler returns.
	requestID := requestIDOf(c)

	pr, pw := io.Pipe()
	c.Context().Response.SetBodyStream(pr, -1)

	go func() {
		defer cancel()

		err := produce(sseWriter{w: bufio.NewWriter(pw)})
		if err != nil {
			s.config.Logger.Debug("sse client went away",
				"request_id", requestID,
				"error", err,
			)
		}
		_ = pw.CloseWithError(err)
	}()
}

// handleAnalysis streams an analysis turn as "thinking" and "content"
// events followed by "done" or "error".
func (s *Server) handleAnalysis(c *fiber.Ctx) error {
	var req AnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err)
	}

	in, err := req.parse()
	if err != nil {
		return badRequest(err)
	}

	history, err := toHistory(req.History)
	if err != nil {
		return err
	}
	if len(history) > 0 && req.Question == "" && history[len(history)-1].Role != llm.RoleUser {
		return fiber.NewError(fiber.StatusBadRequest, "question is required when history does not end with a user message")
	}

	chart, _, err := s.chartFor(c, in)
	if err != nil {
		return err
	}

	requestID := requestIDOf(c)
	started := time.Now().UTC()

	// The stream outlives the handler, so it cannot use the request context.
	ctx, cancel := context.WithCancel(context.Background())
	areq := reading.AnalysisRequest{
		Chart:    chart,
		Gender:   in.gender,
		History:  history,
		Question: req.Question,
	}
	updates, err := s.config.Analyzer.Analyze(ctx, areq)
	if err != nil {
		cancel()
		return err
	}

	readingsStarted.Add(string(storage.KindAnalysis), 1)
	log := s.config.Logger.With("request_id", requestID, "kind", storage.KindAnalysis)
	log.Info("analysis started", "follow_up", len(history) > 0)

	question := req.Question
	if question == "" {
		question = reading.InitialQuestion
		if len(history) > 0 {
			question = history[len(history)-1].Content
		}
	}

	s.stream(c, cancel, func(w sseWriter) error {
		var thought, content string
		for u := range updates {
			switch {
			case u.Err != nil:
				streamErrors.Add(1)
				log.Warn("analysis failed", "error", u.Err)
				return w.send(eventError, ErrorEvent{Error: u.Err.Error()})

			case u.Done:
				readingsCompleted.Add(string(storage.KindAnalysis), 1)
				s.archive(log, archive.Job{
					Surface: "api",
					Meta:    eventstream.RequestMeta{RequestID: requestID, StartedAt: started, CompletedAt: time.Now().UTC()},
					Reading: storage.Reading{
						ID:        requestID,
						Kind:      storage.KindAnalysis,
						Birth:     in.birth,
						Gender:    in.gender,
						Chart:     chart,
						Model:     s.config.Analyzer.ModelName(),
						Question:  question,
						Thinking:  thought,
						Content:   content,
						CreatedAt: started,
					},
				})
				return w.send(eventDone, DoneEvent{RequestID: requestID, Thinking: thought, Content: content})

			case u.Thinking != "":
				thought = u.Thinking
				if err := w.send(eventThinking, TextEvent{Text: u.Thinking}); err != nil {
					return err
				}

			case u.Content != "":
				content += u.Content
				if err := w.send(eventContent, TextEvent{Text: u.Content}); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return nil
}

// handleMindmap streams a mind map as "markdown" events carrying the whole
// document so far, followed by "done" or "error".
func (s *Server) handleMindmap(c *fiber.Ctx) error {
	var req ChartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err)
	}

	in, err := req.parse()
	if err != nil {
		return badRequest(err)
	}

	chart, _, err := s.chartFor(c, in)
	if err != nil {
		return err
	}

	requestID := requestIDOf(c)
	started := time.Now().UTC()

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := s.config.Mindmapper.Generate(ctx, chart, in.gender)
	if err != nil {
		cancel()
		return err
	}

	readingsStarted.Add(string(storage.KindMindmap), 1)
	log := s.config.Logger.With("request_id", requestID, "kind", storage.KindMindmap)
	log.Info("mind map started")

	s.stream(c, cancel, func(w sseWriter) error {
		for u := range updates {
			switch {
			case u.Err != nil:
				streamErrors.Add(1)
				log.Warn("mind map failed", "error", u.Err)
				return w.send(eventError, ErrorEvent{Error: u.Err.Error()})

			case u.Done:
				readingsCompleted.Add(string(storage.KindMindmap), 1)
				s.archive(log, archive.Job{
					Surface: "api",
					Meta:    eventstream.RequestMeta{RequestID: requestID, StartedAt: started, CompletedAt: time.Now().UTC()},
					Reading: storage.Reading{
						ID:        requestID,
						Kind:      storage.KindMindmap,
						Birth:     in.birth,
						Gender:    in.gender,
						Chart:     chart,
						Model:     s.config.Mindmapper.ModelName(),
						Content:   u.Markdown,
						CreatedAt: started,
					},
				})
				return w.send(eventDone, DoneEvent{RequestID: requestID, Markdown: u.Markdown})

			default:
				if err := w.send(eventMarkdown, MarkdownEvent{Markdown: u.Markdown}); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return nil
}

func (s *Server) archive(log *slog.Logger, job archive.Job) {
	if s.config.Archive == nil {
		return
	}
	if !s.config.Archive.Enqueue(job) {
		log.Warn("reading not archived")
	}
}
