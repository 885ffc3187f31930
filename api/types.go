package api

import (
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/llm"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChartRequest identifies a birth.
type ChartRequest struct {
	// Birth is "YYYY-MM-DD HH:MM" in Beijing time, or RFC 3339.
	Birth  string `json:"birth"`
	Gender string `json:"gender"`
}

// AnalysisRequest asks for an initial analysis when History is empty and a
// follow-up answer otherwise.
type AnalysisRequest struct {
	ChartRequest

	History  []HistoryMessage `json:"history,omitempty"`
	Question string           `json:"question,omitempty"`
}

// HistoryMessage is one prior turn sent by the client.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextEvent is the data of "thinking" and "content" SSE events. Thinking
// text replaces the previous reasoning; content text is appended.
type TextEvent struct {
	Text string `json:"text"`
}

// MarkdownEvent is the data of "markdown" SSE events. It always carries the
// whole document so far.
type MarkdownEvent struct {
	Markdown string `json:"markdown"`
}

// ErrorEvent is the data of the terminal "error" SSE event.
type ErrorEvent struct {
	Error string `json:"error"`
}

// DoneEvent is the data of the terminal "done" SSE event.
type DoneEvent struct {
	RequestID string `json:"request_id"`
	Thinking  string `json:"thinking,omitempty"`
	Content   string `json:"content,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
}

// ReadingSummary is a list entry of GET /readings.
type ReadingSummary struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Pillars   []string  `json:"pillars"`
	Gender    string    `json:"gender"`
	Model     string    `json:"model"`
	Question  string    `json:"question,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type birthInput struct {
	birth  time.Time
	gender bazi.Gender
}

func (r ChartRequest) parse() (birthInput, error) {
	birth, err := bazi.ParseBirth(r.Birth)
	if err != nil {
		return birthInput{}, err
	}

	gender, err := bazi.ParseGender(r.Gender)
	if err != nil {
		return birthInput{}, err
	}

	return birthInput{birth: birth, gender: gender}, nil
}

func toHistory(in []HistoryMessage) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(in))
	for i, m := range in {
		role, ok := llm.ParseRole(m.Role)
		if !ok || role == llm.RoleSystem {
			return nil, &badRequestError{msg: "history[" + itoa(i) + "]: role must be user or assistant"}
		}
		out = append(out, llm.NewTextMessage(role, m.Content))
	}
	return out, nil
}
