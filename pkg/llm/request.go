package llm

// ChatRequest is the OpenAI-compatible chat completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []WireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// WireMessage is a Message as it travels upstream: role and content only.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToWire strips the display-only fields from messages.
func ToWire(messages []Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, WireMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
