// Package sse parses Server-Sent Events from an upstream chat completions
// stream. A Reader can optionally tee the raw bytes to a second writer, which
// the chat client uses to record stream transcripts.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneSentinel is the data payload OpenAI-compatible APIs send as the final
// event of a stream.
const DoneSentinel = "[DONE]"

// Event is one "data:" line of the upstream byte stream.
type Event struct {
	// Type is the "event:" field in effect for the line. Empty means
	// "message".
	Type string

	// Data is the value of the data line.
	Data string

	// ID is the "id:" field in effect for the line, if present.
	ID string
}

// IsDone reports whether the event is the terminal [DONE] sentinel.
func (e *Event) IsDone() bool {
	return e.Data == DoneSentinel
}
