// Package testutils holds fakes shared by package tests.
package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/bazi/pkg/chat"
)

// MockStreamer replays a fixed list of events for every Stream call and
// records the requests it receives.
type MockStreamer struct {
	Events []chat.Event

	// StartErr is returned by Stream before any event is produced.
	StartErr error

	mu       sync.Mutex
	requests []chat.Request
}

// NewMockStreamer returns a MockStreamer that emits each delta and then Done.
func NewMockStreamer(deltas ...string) *MockStreamer {
	return &MockStreamer{Events: Deltas(deltas...)}
}

func (m *MockStreamer) Stream(ctx context.Context, req chat.Request) (<-chan chat.Event, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.StartErr != nil {
		return nil, m.StartErr
	}

	ch := make(chan chat.Event)
	go func() {
		defer close(ch)
		for _, ev := range m.Events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Requests returns every request seen so far.
func (m *MockStreamer) Requests() []chat.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chat.Request(nil), m.requests...)
}

// Last returns the most recent request, or the zero Request.
func (m *MockStreamer) Last() chat.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return chat.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Deltas builds a delta event per string followed by Done.
func Deltas(ds ...string) []chat.Event {
	events := make([]chat.Event, 0, len(ds)+1)
	for _, d := range ds {
		events = append(events, chat.Event{Delta: d})
	}
	return append(events, chat.Event{Done: true})
}
