package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/bazi/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeReadingCompleted is emitted after a reading stream finishes.
	EventTypeReadingCompleted = "bazi.reading.completed"
)

// ReadingCompletedEvent is a transport-neutral event payload for a finished
// analysis turn or mind map.
type ReadingCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   RequestMeta     `json:"request_meta"`
	Reading       storage.Reading `json:"reading"`
}

// EventSource identifies where the reading originated.
type EventSource struct {
	// Surface is "cli", "api" or "mcp".
	Surface string `json:"surface"`
	Model   string `json:"model"`
}

// RequestMeta captures request lifecycle metadata for the event.
type RequestMeta struct {
	RequestID   string    `json:"request_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewReadingCompleted builds an event for r with a fresh event ID.
func NewReadingCompleted(surface string, meta RequestMeta, r storage.Reading) *ReadingCompletedEvent {
	if meta.DurationMs == 0 && !meta.StartedAt.IsZero() && !meta.CompletedAt.IsZero() {
		meta.DurationMs = meta.CompletedAt.Sub(meta.StartedAt).Milliseconds()
	}

	return &ReadingCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeReadingCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Surface: surface,
			Model:   r.Model,
		},
		RequestMeta: meta,
		Reading:     r,
	}
}
