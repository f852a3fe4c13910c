// Package worker provides an asynchronous worker pool that appends texts to a
// tag index off the caller's hot path. Embedding calls can take seconds, so
// the API hands ingestion jobs to the pool and answers immediately.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/chataize/semantic-index/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 2 * time.Minute
)

// Indexer is the subset of tagindex.Index the pool writes to.
type Indexer interface {
	Add(ctx context.Context, text string, tags ...string) error
}

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	ID   string
	Text string
	Tags []string
}

// NewJob returns a Job with a fresh random ID.
func NewJob(text string, tags ...string) Job {
	return Job{ID: uuid.NewString(), Text: text, Tags: tags}
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Index receives every job's text and tags.
	Index Indexer

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single job, embedding call included (defaults to two minutes).
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes index jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Index == nil {
		return nil, fmt.Errorf("worker pool requires an index")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: log,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("job not queued, pool closed", "job_id", job.ID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "job_id", job.ID, "tags", job.Tags)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "job_id", job.ID)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Processed returns the number of jobs indexed successfully.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Failed returns the number of jobs that could not be indexed.
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("index worker stopped", "worker_id", id)
}

// processJob appends the job to the index. Errors are logged, never returned:
// the submitter has already been answered.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.config.Index.Add(ctx, job.Text, job.Tags...); err != nil {
		p.failed.Add(1)
		p.logger.Error("async index append failed", "job_id", job.ID, "error", err)
		return
	}

	p.processed.Add(1)
	p.logger.Info("text indexed", "job_id", job.ID, "tags", job.Tags)
}
