package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/logger"
)

const completionsPath = "/chat/completions"

// SDKClient streams completions through the official OpenAI SDK. The SDK
// builds and authenticates the request; the body is read line by line like
// Client's, with each line decoded as an openai.ChatCompletionChunk, so a
// malformed chunk is skipped instead of ending the stream.
type SDKClient struct {
	client     openai.Client
	logger     *slog.Logger
	transcript io.Writer
}

// NewSDKClient returns an SDK-backed Streamer. cfg.Endpoint is the full
// completions URL; the SDK base URL is derived from it.
func NewSDKClient(cfg Config, opts ...Option) *SDKClient {
	cfg = cfg.withDefaults()

	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient(cfg.Timeout)
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(BaseURL(cfg.Endpoint)),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	)

	return &SDKClient{client: client, logger: o.logger, transcript: o.transcript}
}

// BaseURL strips the chat completions path from endpoint.
func BaseURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), completionsPath) + "/"
}

// Stream implements Streamer.
func (c *SDKClient) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, &RequestError{Msg: "building request", Err: err}
	}

	c.logger.Debug("starting sdk chat stream",
		"model", req.Model,
		"messages", len(req.Messages),
	)

	var resp *http.Response
	err = c.client.Post(ctx, strings.TrimPrefix(completionsPath, "/"), params, &resp,
		option.WithJSONSet("stream", true),
		option.WithHeader("Accept", "text/event-stream"),
	)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &RequestError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, &RequestError{Err: err}
	}
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody {
		return nil, &RequestError{Msg: "response has no body"}
	}

	events := make(chan Event)
	go streamLines(ctx, resp.Body, c.transcript, c.logger, decodeSDKChunk, events)

	return events, nil
}

// decodeSDKChunk extracts the content delta from one chunk using the SDK's
// chunk type.
func decodeSDKChunk(data []byte) (string, error) {
	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", err
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

func buildParams(req Request) (openai.ChatCompletionNewParams, error) {
	if strings.TrimSpace(req.Model) == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported role: %s", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params, nil
}
