package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned by Enqueue before Start or after Stop.
	ErrNotStarted = errors.New("queue not started")
	// ErrQueueFull is returned when the buffer has no room for another job.
	ErrQueueFull = errors.New("queue full")
)

// Job is one unit of background work. Attempt counts failed runs so far.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ExhaustedHandler is invoked once a job has used up its retries.
type ExhaustedHandler func(context.Context, Job, error)

// QueueConfig configures the worker pool. MaxRetries defaults to 3 and a
// negative value disables retries. The wait before retry n is RetryDelay*2^(n-1).
type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *zap.Logger
	OnExhausted ExhaustedHandler
}

// Queue runs jobs on a fixed set of goroutines. Jobs live only in memory and
// are lost on Stop.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	log     *zap.SugaredLogger
	jobs    chan Job

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
}

// NewQueue builds a stopped queue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 3
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     cfg.Logger.Sugar().With("queue", name),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it on a running queue does nothing.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(q.ctx)
	}
	q.log.Infow("queue started", "workers", q.cfg.Workers)
}

// Stop cancels in-flight work and waits for the workers to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Infow("queue stopped")
}

// Enqueue hands job to the workers without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

// Stats reports processed and permanently failed job counts.
func (q *Queue) Stats() (processed, failed int64) {
	return q.processed.Load(), q.failed.Load()
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.run(ctx, job)
		}
	}
}

// run executes job, retrying in place until it succeeds, runs out of
// attempts or the queue stops.
func (q *Queue) run(ctx context.Context, job Job) {
	for {
		err := q.handler(ctx, job)
		if err == nil {
			q.processed.Add(1)
			return
		}
		job.Attempt++
		if job.Attempt > q.cfg.MaxRetries {
			q.failed.Add(1)
			q.log.Errorw("job exhausted retries", "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", err)
			if q.cfg.OnExhausted != nil {
				q.cfg.OnExhausted(ctx, job, err)
			}
			return
		}
		wait := q.cfg.RetryDelay << (job.Attempt - 1)
		q.log.Warnw("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
