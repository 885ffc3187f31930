// Package storage archives completed readings so they can be listed and
// revisited later.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
)

// Kind names the orchestrator that produced a reading.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindMindmap  Kind = "mindmap"
)

// Reading is one completed analysis turn or mind map.
type Reading struct {
	ID     string      `json:"id"`
	Kind   Kind        `json:"kind"`
	Birth  time.Time   `json:"birth"`
	Gender bazi.Gender `json:"gender"`
	Chart  bazi.Chart  `json:"chart"`
	Model  string      `json:"model"`

	// Question is the user prompt for analysis turns. Empty for mind maps.
	Question string `json:"question,omitempty"`

	// Thinking is the model reasoning, analysis only.
	Thinking string `json:"thinking,omitempty"`

	// Content is the answer text or the mind map markdown.
	Content string `json:"content"`

	CreatedAt time.Time `json:"created_at"`
}

// ListOptions filters List results.
type ListOptions struct {
	// Kind restricts results to one kind when set.
	Kind Kind

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// Driver defines the interface for persisting and retrieving readings in a
// storage backend.
type Driver interface {
	// Put stores a reading. Storing an ID that already exists replaces it.
	Put(ctx context.Context, r *Reading) error

	// Get retrieves a reading by ID. Returns NotFoundError when missing.
	Get(ctx context.Context, id string) (*Reading, error)

	// List returns readings newest first.
	List(ctx context.Context, opts ListOptions) ([]*Reading, error)

	// Close closes the store and releases any resources.
	Close() error
}
