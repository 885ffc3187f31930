package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/logger"
	"github.com/papercomputeco/bazi/pkg/sse"
	"github.com/papercomputeco/bazi/pkg/utils"
)

// maxLoggedPayload caps how much of a malformed chunk is logged.
const maxLoggedPayload = 256

// Client streams completions by parsing the SSE body itself. Malformed chunks
// are logged and skipped instead of aborting the stream.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	transcript io.Writer
}

// NewClient returns an SSE streaming client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient(cfg.Timeout)
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: o.httpClient,
		logger:     o.logger,
		transcript: o.transcript,
	}
}

// Stream sends req and returns the stream of content deltas. Request and
// status failures are returned directly as a *RequestError; failures while
// reading the body arrive as an Err event.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	body, err := json.Marshal(llm.ChatRequest{
		Model:       req.Model,
		Messages:    llm.ToWire(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, &RequestError{Msg: "encoding request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Msg: "creating request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("starting chat stream",
		"model", req.Model,
		"messages", len(req.Messages),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &RequestError{StatusCode: resp.StatusCode, Msg: string(bytes.TrimSpace(snippet))}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &RequestError{Msg: "response has no body"}
	}

	events := make(chan Event)
	go c.consume(ctx, resp.Body, events)

	return events, nil
}

func (c *Client) consume(ctx context.Context, body io.ReadCloser, events chan<- Event) {
	streamLines(ctx, body, c.transcript, c.logger, decodeChunk, events)
}

// upstreamError reports a chunk carrying an "error" object in place of a
// completion, which ends the stream.
func upstreamError(data []byte) error {
	ep := gjson.GetBytes(data, "error")
	if !ep.Exists() {
		return nil
	}

	msg := ep.Get("message").String()
	if msg == "" {
		msg = ep.String()
	}
	return &RequestError{Msg: "upstream error: " + msg}
}

// decodeChunk extracts the content delta from one completion chunk.
func decodeChunk(data []byte) (string, error) {
	var chunk llm.StreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", err
	}
	return chunk.DeltaContent(), nil
}

// streamLines reads body one data line at a time and sends each decoded
// delta. A line that fails to decode is logged and skipped. The stream ends
// at [DONE], at the end of the body, at an upstream error payload, or on a
// read error.
func streamLines(
	ctx context.Context,
	body io.ReadCloser,
	transcript io.Writer,
	log *slog.Logger,
	decode func(data []byte) (string, error),
	events chan<- Event,
) {
	defer close(events)
	defer body.Close()

	reader := sse.NewTeeReader(body, transcript)
	chunks := 0

	for {
		ev, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(ctx, events, Event{Err: &RequestError{Msg: "reading stream", Err: err}})
			return
		}

		// The body ended without a [DONE] sentinel.
		if ev == nil || ev.IsDone() {
			log.Debug("chat stream complete", "chunks", chunks)
			send(ctx, events, Event{Done: true})
			return
		}

		if ev.Data == "" {
			continue
		}

		data := []byte(ev.Data)
		if err := upstreamError(data); err != nil {
			send(ctx, events, Event{Err: err})
			return
		}

		delta, err := decode(data)
		if err != nil {
			log.Warn("skipping malformed stream chunk",
				"error", err,
				"data", utils.Truncate(ev.Data, maxLoggedPayload),
			)
			continue
		}
		chunks++

		if delta == "" {
			continue
		}

		if !send(ctx, events, Event{Delta: delta}) {
			return
		}
	}
}
