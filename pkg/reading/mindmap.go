package reading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/chat"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/logger"
)

// Mindmapper streams markdown mind maps of a chart.
type Mindmapper struct {
	Streamer chat.Streamer

	// Model defaults to DefaultMindmapModel.
	Model string

	// Temperature is sent as is.
	Temperature float64

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// MindmapUpdate carries the complete markdown received so far.
type MindmapUpdate struct {
	Markdown string
	Err      error
	Done     bool
}

// Messages builds the message list sent upstream.
func (m *Mindmapper) Messages(chart bazi.Chart, gender bazi.Gender) []llm.Message {
	return []llm.Message{
		llm.System(MindmapSystemPrompt),
		llm.User(MindmapPrompt(chart, gender)),
	}
}

// Generate starts a mind-map stream. Deltas are not tag split.
func (m *Mindmapper) Generate(ctx context.Context, chart bazi.Chart, gender bazi.Gender) (<-chan MindmapUpdate, error) {
	if err := validateChart(chart); err != nil {
		return nil, err
	}

	model := m.ModelName()

	events, err := m.Streamer.Stream(ctx, chat.Request{
		Model:       model,
		Messages:    m.Messages(chart, gender),
		Temperature: m.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("starting mind map: %w", err)
	}

	log := m.Logger
	if log == nil {
		log = logger.Nop()
	}
	updates := make(chan MindmapUpdate)

	go func() {
		defer close(updates)
		var markdown strings.Builder

		forward(ctx, events, func(ev chat.Event) bool {
			switch {
			case ev.Err != nil:
				log.Warn("mind map stream failed", "error", ev.Err)
				deliver(ctx, updates, MindmapUpdate{Markdown: markdown.String(), Err: ev.Err})
				return false
			case ev.Done:
				log.Debug("mind map stream complete", "model", model, "markdown_len", markdown.Len())
				deliver(ctx, updates, MindmapUpdate{Markdown: markdown.String(), Done: true})
				return false
			default:
				markdown.WriteString(ev.Delta)
				return deliver(ctx, updates, MindmapUpdate{Markdown: markdown.String()})
			}
		})
	}()

	return updates, nil
}

// ModelName returns the model mind maps are requested from.
func (m *Mindmapper) ModelName() string {
	if m.Model == "" {
		return DefaultMindmapModel
	}
	return m.Model
}

// CollectMarkdown drains a mind-map stream and returns the final markdown and
// the terminal error, if any.
func CollectMarkdown(updates <-chan MindmapUpdate) (string, error) {
	var (
		markdown string
		err      error
	)
	for u := range updates {
		markdown = u.Markdown
		if u.Err != nil {
			err = u.Err
		}
	}
	return markdown, err
}
