package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
)

// TaskHandler processes one Task. A non-nil error is fatal for the run.
type TaskHandler func(context.Context, Task) error

// FatalCell holds the first fatal error reported by any worker. Later
// errors are discarded.
type FatalCell struct {
	err atomic.Pointer[error]
}

// Set stores err if no error has been stored yet and reports whether it won.
func (c *FatalCell) Set(err error) bool {
	if err == nil {
		return false
	}
	return c.err.CompareAndSwap(nil, &err)
}

// Err returns the stored error, or nil.
func (c *FatalCell) Err() error {
	if p := c.err.Load(); p != nil {
		return *p
	}
	return nil
}

// WorkerPool drains a TaskChannel with a fixed set of workers.
//
// The first handler error is recorded and stops the pool from taking new
// tasks. Tasks already running in other workers finish normally.
type WorkerPool struct {
	tasks   TaskChannel
	handler TaskHandler

	// OnDone is called once for every task a worker took off the queue,
	// after its handler returned or panicked. It must be safe for
	// concurrent use.
	OnDone func(Task)

	// OnFatal is called once, with the first fatal error.
	OnFatal func(error)

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	fatal    FatalCell
	stopped  chan struct{}
	stopOnce sync.Once

	workerCount int
	wg          sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. No workers run until Start is
// called.
func NewWorkerPool(ctx context.Context, tasks TaskChannel, handler TaskHandler) *WorkerPool {
	poolCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		tasks:   tasks,
		handler: handler,
		parent:  ctx,
		ctx:     poolCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start launches count workers, at least one. It must be called once,
// before Wait.
func (p *WorkerPool) Start(count int) {
	if count < 1 {
		count = 1
	}
	p.workerCount = count
	p.wg.Add(count)
	for i := 0; i < count; i++ {
		go p.work()
	}
}

// WorkerCount returns the number of workers started.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// Stopped is closed when a fatal error has been recorded.
func (p *WorkerPool) Stopped() <-chan struct{} {
	return p.stopped
}

// Err returns the first fatal error, or nil.
func (p *WorkerPool) Err() error {
	return p.fatal.Err()
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		// A fatal error or shutdown wins over a ready task.
		select {
		case <-p.stopped:
			return
		case <-p.ctx.Done():
			return
		default:
		}

		select {
		case <-p.stopped:
			return
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(task)
		}
	}
}

func (p *WorkerPool) run(task Task) {
	var err error
	var c panics.Catcher
	c.Try(func() { err = p.handler(p.ctx, task) })
	if r := c.Recovered(); r != nil {
		err = r.AsError()
	}

	if p.OnDone != nil {
		p.OnDone(task)
	}

	if err != nil && p.fatal.Set(err) {
		p.stopOnce.Do(func() { close(p.stopped) })
		if p.OnFatal != nil {
			p.OnFatal(err)
		}
	}
}

// Wait blocks until every worker has exited: the queue was closed and
// drained, a fatal error stopped the pool, or the context was cancelled.
// It returns the first fatal error, else the parent context's error.
func (p *WorkerPool) Wait() error {
	p.wg.Wait()
	if err := p.fatal.Err(); err != nil {
		return err
	}
	return p.parent.Err()
}

// Stop initiates termination of all workers and waits for them to exit.
// Handlers that are still running see their context cancelled.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
