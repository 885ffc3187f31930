package reading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/chat"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/logger"
	"github.com/papercomputeco/bazi/pkg/thinking"
)

// Analyzer streams narrative chart analyses.
type Analyzer struct {
	Streamer chat.Streamer

	// Model defaults to DefaultAnalysisModel.
	Model string

	// Temperature is sent as is.
	Temperature float64

	// MaxTokens is omitted from the request when zero.
	MaxTokens int

	// Now supplies the life-decade start year. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// AnalysisRequest describes one analysis turn. An empty History asks for the
// initial reading; otherwise Question is answered in the context of History.
type AnalysisRequest struct {
	Chart   bazi.Chart
	Gender  bazi.Gender
	History []llm.Message

	// Question falls back to the content of the last History message.
	Question string
}

// Update is one item of an analysis stream. Thinking, when set, replaces the
// displayed reasoning; Content, when set, is appended to the answer. The
// stream ends with an update carrying Err or Done.
type Update struct {
	Thinking string
	Content  string
	Err      error
	Done     bool
}

// Messages builds the message list sent upstream for req.
func (a *Analyzer) Messages(req AnalysisRequest) []llm.Message {
	var prompt string
	if len(req.History) == 0 {
		prompt = InitialPrompt(req.Chart, req.Gender, a.now().Year())
	} else {
		question := req.Question
		if question == "" {
			question = llm.LastContent(req.History)
		}
		prompt = FollowUpPrompt(req.Chart, req.Gender, question)
	}

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.System(AnalysisSystemPrompt))
	messages = append(messages, req.History...)
	messages = append(messages, llm.User(prompt))

	return messages
}

// Analyze starts an analysis stream. Every delta runs through a splitter
// owned by this call, so concurrent analyses never share reducer state.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (<-chan Update, error) {
	if err := validateChart(req.Chart); err != nil {
		return nil, err
	}

	model := a.ModelName()

	events, err := a.Streamer.Stream(ctx, chat.Request{
		Model:       model,
		Messages:    a.Messages(req),
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("starting analysis: %w", err)
	}

	log := a.logger().With("model", model, "follow_up", len(req.History) > 0)
	updates := make(chan Update)

	go func() {
		defer close(updates)
		splitter := thinking.NewSplitter()

		emit := func(us []thinking.Update) bool {
			for _, u := range us {
				if !deliver(ctx, updates, toUpdate(u)) {
					return false
				}
			}
			return true
		}

		forward(ctx, events, func(ev chat.Event) bool {
			switch {
			case ev.Err != nil:
				log.Warn("analysis stream failed", "error", ev.Err)
				deliver(ctx, updates, Update{Err: ev.Err})
				return false
			case ev.Done:
				if !emit(splitter.Close()) {
					return false
				}
				log.Debug("analysis stream complete",
					"thinking_len", len(splitter.Thinking()),
					"content_len", len(splitter.Content()),
				)
				deliver(ctx, updates, Update{Done: true})
				return false
			default:
				return emit(splitter.Feed(ev.Delta))
			}
		})
	}()

	return updates, nil
}

// ModelName returns the model analyses are requested from.
func (a *Analyzer) ModelName() string {
	if a.Model == "" {
		return DefaultAnalysisModel
	}
	return a.Model
}

func (a *Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return logger.Nop()
}

func toUpdate(u thinking.Update) Update {
	if u.Kind == thinking.KindThinking {
		return Update{Thinking: u.Text}
	}
	return Update{Content: u.Text}
}

// Collect drains an analysis stream and returns the final reasoning, the
// accumulated answer and the terminal error, if any.
func Collect(updates <-chan Update) (thought, content string, err error) {
	for u := range updates {
		if u.Thinking != "" {
			thought = u.Thinking
		}
		content += u.Content
		if u.Err != nil {
			err = u.Err
		}
	}
	return thought, content, err
}

// AppendTurn records a completed analysis turn in history and returns the
// extended history.
func AppendTurn(history []llm.Message, question, thought, content string) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		llm.User(question),
		llm.Message{Role: llm.RoleAssistant, Content: content, Thinking: thought},
	)
	return out
}
