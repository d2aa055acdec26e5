package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultPoolSize is the number of workers used when no size is configured
const DefaultPoolSize = 5

var (
	ErrPoolStopped = errors.New("Pool is not running")
	ErrPoolRunning = errors.New("Pool is already running")
)

// Job is a unit of work for the pool, the executor of a named service.
type Job struct {
	Service  string
	Executor *Executor
}

// Pool runs jobs on a fixed number of worker goroutines.
//
// The same Executor may be enqueued while a previous run is still in
// flight, so executors handed to the pool should wrap reentrant operations.
type Pool struct {
	logger logrus.FieldLogger

	runningMu sync.RWMutex
	running   bool
	wg        sync.WaitGroup
	//senders counts Enqueue calls that may still send on jobs
	senders sync.WaitGroup

	size int
	jobs chan Job
	quit chan struct{}
}

func NewPool(logger logrus.FieldLogger, size int) *Pool {
	if size < 1 {
		size = DefaultPoolSize
	}

	return &Pool{
		logger: logger,
		size:   size,
	}
}

// Start spins up the workers, an error is returned if the pool is already running.
func (pool *Pool) Start() error {
	pool.runningMu.Lock()
	defer pool.runningMu.Unlock()

	if pool.running {
		return ErrPoolRunning
	}

	jobs := make(chan Job, pool.size)
	pool.jobs = jobs
	pool.quit = make(chan struct{})
	pool.running = true

	pool.wg.Add(pool.size)
	for i := 0; i < pool.size; i++ {
		go func() {
			defer pool.wg.Done()

			for job := range jobs {
				pool.run(job)
			}
		}()
	}

	return nil
}

// run executes a single job. The executor has already logged the outcome,
// a panic is logged here so that the worker survives it.
func (pool *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			pool.logger.
				WithField("service", job.Service).
				WithField("panic", r).
				Error("Job panicked")
		}
	}()

	_ = job.Executor.Execute()
}

// Enqueue adds the job to the queue, blocking while every worker is busy
// and the queue is full. A blocked Enqueue gives up with ErrPoolStopped
// once Stop is called.
func (pool *Pool) Enqueue(job Job) error {
	pool.runningMu.RLock()
	if !pool.running {
		pool.runningMu.RUnlock()
		return ErrPoolStopped
	}
	jobs, quit := pool.jobs, pool.quit
	pool.senders.Add(1)
	pool.runningMu.RUnlock()

	defer pool.senders.Done()

	select {
	case jobs <- job:
		return nil
	case <-quit:
		return ErrPoolStopped
	}
}

// Stop closes the queue and waits for queued and running jobs to finish,
// or for ctx to be done, whichever comes first.
func (pool *Pool) Stop(ctx context.Context) error {
	pool.runningMu.Lock()
	if !pool.running {
		pool.runningMu.Unlock()
		return ErrPoolStopped
	}
	pool.running = false
	close(pool.quit)
	jobs := pool.jobs
	pool.runningMu.Unlock()

	done := make(chan struct{})
	go func() {
		// jobs is only closed once no Enqueue can send on it
		pool.senders.Wait()
		close(jobs)
		pool.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
