package thinking

import "strings"

// Splitter owns the State for one stream and accumulates the content
// channel. A Splitter must not be shared between streams or goroutines.
type Splitter struct {
	state   State
	content strings.Builder
}

// NewSplitter returns a Splitter with empty state.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Feed applies one delta and returns the updates it produced.
func (s *Splitter) Feed(delta string) []Update {
	var updates []Update
	s.state, updates = Step(s.state, delta)
	s.record(updates)
	return updates
}

// Close flushes any text still held back once the stream has ended.
func (s *Splitter) Close() []Update {
	var updates []Update
	s.state, updates = Flush(s.state)
	s.record(updates)
	return updates
}

func (s *Splitter) record(updates []Update) {
	for _, u := range updates {
		if u.Kind == KindContent {
			s.content.WriteString(u.Text)
		}
	}
}

// Thinking returns the last emitted reasoning text.
func (s *Splitter) Thinking() string {
	return s.state.LastThinking
}

// Content returns all content appended so far.
func (s *Splitter) Content() string {
	return s.content.String()
}

// Pending returns text held back waiting for a tag to complete.
func (s *Splitter) Pending() string {
	return s.state.Buffer
}
