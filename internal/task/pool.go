package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Pool.Do after Close.
var ErrPoolClosed = errors.New("call pool is closed")

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool runs blocking calls on a fixed number of worker goroutines fed by a
// buffered queue. Callers wait for room in the queue rather than being
// turned away.
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	senders sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	logger  *slog.Logger
}

// NewPool starts size workers. Sizes below one are raised to one.
func NewPool(size, queueSize int, logger *slog.Logger) *Pool {
	if size <= 0 {
		logger.Warn("invalid pool size specified, using default",
			"specified_size", size,
			"default_size", 1)
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		jobs:   make(chan job, queueSize),
		logger: logger.With("component", "call_pool"),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Do queues fn, waiting for queue space if needed, and then waits for it to
// finish. When ctx ends first Do returns ctx.Err(); a call that was already
// queued keeps running on its worker and its error is discarded.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.senders.Add(1)
	p.mu.Unlock()

	select {
	case p.jobs <- j:
		p.senders.Done()
	case <-ctx.Done():
		p.senders.Done()
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting calls, lets waiting and queued ones drain and waits
// for the workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	p.mu.Unlock()

	// Workers are still consuming, so every pending send completes.
	p.senders.Wait()
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debug("starting worker", "worker_id", id)

	for j := range p.jobs {
		if err := j.ctx.Err(); err != nil {
			j.done <- err
			continue
		}
		j.done <- p.run(j, id)
	}
	p.logger.Debug("job channel closed, stopping worker", "worker_id", id)
}

func (p *Pool) run(j job, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("call panicked", "worker_id", workerID, "panic", r)
			err = fmt.Errorf("call panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}
