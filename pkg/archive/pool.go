// Package archive persists completed readings and announces them on the
// event stream.
//
// The pool decouples storage and publishing from the streaming hot path so a
// slow database or broker never holds back a client reading its stream.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/bazi/pkg/eventstream"
	"github.com/papercomputeco/bazi/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// Surface names the caller, "cli", "api" or "mcp".
	Surface string

	Meta    eventstream.RequestMeta
	Reading storage.Reading
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting readings. Optional.
	Driver storage.Driver

	// Publisher receives a ReadingCompletedEvent after each stored reading.
	// Optional.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes archive jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"reading_id", job.Reading.ID,
			"kind", job.Reading.Kind,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"reading_id", job.Reading.ID,
			"kind", job.Reading.Kind,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
// The driver and publisher are left open for their owner to close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("archive worker stopped", "worker_id", id)
}

// processJob stores the reading and then publishes it. A storage failure
// skips publishing so consumers never see a reading that cannot be fetched.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if p.config.Driver != nil {
		if err := p.config.Driver.Put(ctx, &job.Reading); err != nil {
			p.logger.Error("async reading storage failed",
				"reading_id", job.Reading.ID,
				"error", err,
			)
			return
		}

		p.logger.Info("reading stored",
			"reading_id", job.Reading.ID,
			"kind", job.Reading.Kind,
		)
	}

	if p.config.Publisher != nil {
		event := eventstream.NewReadingCompleted(job.Surface, job.Meta, job.Reading)
		if err := p.config.Publisher.PublishReading(ctx, event); err != nil {
			p.logger.Warn("failed to publish reading event",
				"reading_id", job.Reading.ID,
				"error", err,
			)
			return
		}

		p.logger.Debug("reading event published",
			"reading_id", job.Reading.ID,
			"event_id", event.EventID,
		)
	}
}
