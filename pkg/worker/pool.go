/*
Package worker provides a fixed-size worker pool fed by a shared, unbounded
task queue. Idle workers claim the next pending task, so a directory that
produces a lot of follow-up work is spread over every worker instead of the
one that discovered it.

Submit never blocks, which lets a single coordinator both feed the queue and
drain Results without deadlocking. Cancellation is checked before each claim;
once the pool's context is done no further task starts and the pending queue
is discarded.

Basic usage:

	pool, err := worker.NewPool(worker.Config{Workers: 4, RateLimit: 0})
	if err != nil {
		return err
	}
	pool.Start(ctx)
	pool.Submit(worker.Task{ID: 1, Execute: readDir})

	for result := range pool.Results() {
		// merge result, maybe Submit more tasks
	}
*/
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrClosed is returned by Submit after Close or Stop.
var ErrClosed = errors.New("pool closed")

// Task represents a unit of work to be processed by the worker pool
type Task struct {
	// ID identifies the task in its Result
	ID int

	// Execute performs the work. It receives the pool's context.
	Execute func(context.Context) (Result, error)
}

// Result represents the output of a processed task
type Result struct {
	// ID matches the task ID that produced this result
	ID int

	// Data holds the task's output
	Data interface{}

	// Err is the error returned by Execute, if any
	Err error
}

// Config holds the configuration for the worker pool
type Config struct {
	// Workers is the number of concurrent workers
	Workers int

	// RateLimit is the maximum number of tasks started per second (0 for unlimited)
	RateLimit int
}

// Pool defines the interface for a worker pool
type Pool interface {
	// Start launches the workers
	Start(context.Context) error

	// Submit queues a task; it never blocks
	Submit(Task) error

	// Results delivers one Result per executed task. It is closed once the
	// pool is closed or stopped and every worker has exited.
	Results() <-chan Result

	// Close stops accepting tasks; workers exit once the queue is empty
	Close()

	// Stop cancels the pool, discards queued tasks and waits for workers
	Stop() error

	// GetStats returns current statistics about the pool
	GetStats() Stats

	// Status returns the current status of the pool
	Status() Status
}

type pool struct {
	config  Config
	limiter *rate.Limiter
	results chan Result

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	closed  bool
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime     time.Time
	activeWorkers atomic.Int32
	completed     atomic.Int64
	failed        atomic.Int64
	discarded     atomic.Int64
}

// NewPool creates a new worker pool with the given configuration
func NewPool(config Config) (Pool, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	p := &pool{
		config:  config,
		limiter: limiter,
		results: make(chan Result, config.Workers*2),
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

func validateConfig(config Config) error {
	if config.Workers <= 0 {
		return fmt.Errorf("number of workers must be positive")
	}
	if config.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}
	return nil
}

func (p *pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true
	p.startTime = time.Now()

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	// Wake workers blocked in claim when the parent context is cancelled.
	go func() {
		<-p.ctx.Done()
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	}()

	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return nil
}

func (p *pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("pool not started")
	}
	if p.closed {
		return ErrClosed
	}
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("pool is shutting down: %w", err)
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

func (p *pool) Results() <-chan Result {
	return p.results
}

func (p *pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Broadcast()
}

func (p *pool) Stop() error {
	p.mu.Lock()
	if p.stopped || !p.started {
		p.stopped = true
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.closed = true
	p.discarded.Add(int64(len(p.queue)))
	p.queue = nil
	p.cancel()
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		// Unblock workers waiting to deliver a result nobody reads anymore.
		for range p.results {
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("shutdown timed out")
	}
}

// claim blocks until a task is available, the pool is closed and drained,
// or the context is cancelled.
func (p *pool) claim() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.ctx.Err() != nil {
			return Task{}, false
		}
		if len(p.queue) > 0 {
			task := p.queue[0]
			p.queue[0] = Task{}
			p.queue = p.queue[1:]
			p.activeWorkers.Add(1)
			return task, true
		}
		if p.closed {
			return Task{}, false
		}
		p.cond.Wait()
	}
}

func (p *pool) worker() {
	defer p.wg.Done()

	for {
		task, ok := p.claim()
		if !ok {
			return
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(p.ctx); err != nil {
				p.activeWorkers.Add(-1)
				p.failed.Add(1)
				p.deliver(Result{ID: task.ID, Err: fmt.Errorf("rate limiter: %w", err)})
				continue
			}
		}

		result, err := task.Execute(p.ctx)
		p.activeWorkers.Add(-1)

		result.ID = task.ID
		if err != nil {
			p.failed.Add(1)
			result.Err = fmt.Errorf("task %d failed: %w", task.ID, err)
		} else {
			p.completed.Add(1)
		}
		p.deliver(result)
	}
}

func (p *pool) deliver(result Result) {
	p.results <- result
}

func (p *pool) GetStats() Stats {
	p.mu.Lock()
	queued := len(p.queue)
	p.mu.Unlock()

	var uptime time.Duration
	if !p.startTime.IsZero() {
		uptime = time.Since(p.startTime)
	}
	return Stats{
		ActiveWorkers:  int(p.activeWorkers.Load()),
		QueuedTasks:    queued,
		CompletedTasks: int(p.completed.Load()),
		FailedTasks:    int(p.failed.Load()),
		DiscardedTasks: int(p.discarded.Load()),
		Status:         p.Status(),
		Uptime:         uptime,
	}
}

func (p *pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case !p.started || p.stopped:
		return StatusStopped
	case p.closed:
		return StatusShuttingDown
	case p.activeWorkers.Load() > 0 || len(p.queue) > 0:
		return StatusProcessing
	default:
		return StatusIdle
	}
}
