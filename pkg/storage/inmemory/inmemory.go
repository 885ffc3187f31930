// Package inmemory provides a map-backed storage driver for tests and for
// running without a database.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/bazi/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of readings
	mu sync.RWMutex

	readings map[string]*storage.Reading
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		readings: make(map[string]*storage.Reading),
	}
}

// Put stores a copy of the reading.
func (d *Driver) Put(_ context.Context, r *storage.Reading) error {
	if r == nil {
		return storage.ErrNilReading
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *r
	d.readings[r.ID] = &cp
	return nil
}

// Get retrieves a reading by ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.Reading, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.readings[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	cp := *r
	return &cp, nil
}

// List returns readings newest first.
func (d *Driver) List(_ context.Context, opts storage.ListOptions) ([]*storage.Reading, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.Reading, 0, len(d.readings))
	for _, r := range d.readings {
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	slices.SortFunc(result, func(a, b *storage.Reading) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
