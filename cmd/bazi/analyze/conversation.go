package analyzecmder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/bazi/pkg/archive"
	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/dotdir"
	"github.com/papercomputeco/bazi/pkg/eventstream"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/reading"
	"github.com/papercomputeco/bazi/pkg/storage"
)

// conversation is one analysis session: the chart, the turns so far and
// where completed turns are recorded.
type conversation struct {
	analyzer *reading.Analyzer
	birth    time.Time
	gender   bazi.Gender
	chart    bazi.Chart
	history  []llm.Message

	// pool archives completed turns. Optional.
	pool *archive.Pool

	// save persists the session after every turn. Optional.
	save func(*dotdir.SessionState) error

	readingID string
	logger    *slog.Logger
}

// turn is an in-flight question.
type turn struct {
	question string
	started  time.Time
	updates  <-chan reading.Update
}

// ask starts a turn. The first turn of a conversation is always the initial
// reading, whatever question is passed.
func (c *conversation) ask(ctx context.Context, question string) (*turn, error) {
	req := reading.AnalysisRequest{
		Chart:  c.chart,
		Gender: c.gender,
	}

	if len(c.history) == 0 {
		question = reading.InitialQuestion
	} else {
		req.History = c.history
		req.Question = question
	}

	updates, err := c.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	return &turn{question: question, started: time.Now().UTC(), updates: updates}, nil
}

// record appends a finished turn to the history, then archives it and saves
// the session.
func (c *conversation) record(t *turn, thought, content string) error {
	c.history = reading.AppendTurn(c.history, t.question, thought, content)
	c.readingID = uuid.NewString()

	if c.pool != nil {
		c.pool.Enqueue(archive.Job{
			Surface: "cli",
			Meta: eventstream.RequestMeta{
				StartedAt:   t.started,
				CompletedAt: time.Now().UTC(),
			},
			Reading: storage.Reading{
				ID:        c.readingID,
				Kind:      storage.KindAnalysis,
				Birth:     c.birth,
				Gender:    c.gender,
				Chart:     c.chart,
				Model:     c.analyzer.ModelName(),
				Question:  t.question,
				Thinking:  thought,
				Content:   content,
				CreatedAt: t.started,
			},
		})
	}

	if c.save == nil {
		return nil
	}
	if err := c.save(c.state()); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (c *conversation) state() *dotdir.SessionState {
	msgs := make([]dotdir.SessionMessage, 0, len(c.history))
	for _, m := range c.history {
		msgs = append(msgs, dotdir.SessionMessage{Role: string(m.Role), Content: m.Content})
	}

	return &dotdir.SessionState{
		Birth:     c.birth.Format(time.RFC3339),
		Gender:    string(c.gender),
		ReadingID: c.readingID,
		Messages:  msgs,
		UpdatedAt: time.Now().UTC(),
	}
}

// restore rebuilds the birth data and history of a saved session.
func restore(state *dotdir.SessionState) (time.Time, bazi.Gender, []llm.Message, error) {
	birth, err := time.Parse(time.RFC3339, state.Birth)
	if err != nil {
		return time.Time{}, "", nil, fmt.Errorf("saved session has an invalid birth time: %w", err)
	}

	gender, err := bazi.ParseGender(state.Gender)
	if err != nil {
		return time.Time{}, "", nil, fmt.Errorf("saved session: %w", err)
	}

	history := make([]llm.Message, 0, len(state.Messages))
	for i, m := range state.Messages {
		role, ok := llm.ParseRole(m.Role)
		if !ok || role == llm.RoleSystem {
			return time.Time{}, "", nil, fmt.Errorf("saved session message %d has role %q", i, m.Role)
		}
		history = append(history, llm.NewTextMessage(role, m.Content))
	}

	return birth, gender, history, nil
}
