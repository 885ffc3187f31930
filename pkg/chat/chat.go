// Package chat streams completions from an OpenAI-compatible chat endpoint.
//
// A Streamer returns a channel of Events. The producer goroutine closes the
// channel after the terminal event (Done or Err). Cancelling the context
// stops reading further chunks and closes the channel.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/bazi/pkg/llm"
)

const (
	// DefaultEndpoint is the SiliconFlow chat completions URL.
	DefaultEndpoint = "https://api.siliconflow.cn/v1/chat/completions"

	// DefaultTimeout bounds the wait for response headers. The stream body
	// itself is only bounded by the request context.
	DefaultTimeout = 60 * time.Second

	// BackendSSE selects Client.
	BackendSSE = "sse"

	// BackendOpenAI selects SDKClient.
	BackendOpenAI = "openai"
)

// Streamer starts one streamed completion.
type Streamer interface {
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}

// Request is a single completion request.
type Request struct {
	Model       string
	Messages    []llm.Message
	Temperature float64

	// MaxTokens is omitted from the request when zero.
	MaxTokens int
}

// Event is one item of a completion stream. Exactly one of Delta, Err or
// Done is set.
type Event struct {
	Delta string
	Err   error
	Done  bool
}

// ErrChatRequest is matched by every RequestError via errors.Is.
var ErrChatRequest = errors.New("chat request failed")

// RequestError reports a failed chat request or an aborted stream.
type RequestError struct {
	StatusCode int
	Msg        string
	Err        error
}

func (e *RequestError) Error() string {
	msg := "chat request"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: http status %d", msg, e.StatusCode)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is makes every RequestError match ErrChatRequest.
func (e *RequestError) Is(target error) bool { return target == ErrChatRequest }

// Config holds what every backend needs to reach the chat endpoint.
type Config struct {
	// Endpoint is the full chat completions URL. Defaults to DefaultEndpoint.
	Endpoint string

	// APIKey is sent as a bearer token.
	APIKey string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Option customizes a backend.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	transcript io.Writer
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTranscript copies the raw response stream to w.
func WithTranscript(w io.Writer) Option {
	return func(o *options) { o.transcript = w }
}

// New returns the Streamer for backend, which is BackendSSE (also the
// default for "") or BackendOpenAI.
func New(backend string, cfg Config, opts ...Option) (Streamer, error) {
	switch backend {
	case "", BackendSSE:
		return NewClient(cfg, opts...), nil
	case BackendOpenAI:
		return NewSDKClient(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unknown chat backend %q", backend)
	}
}

// newHTTPClient returns a client whose timeout applies to the response
// headers only, so long streams are not cut off.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// send delivers ev unless ctx is done first.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
