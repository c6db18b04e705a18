// Package taskpool is the process-wide execution context for background work
// handed off from request paths (order notification fan-out).
package taskpool

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("taskpool: closed")
	ErrPoolFull   = errors.New("taskpool: queue full")
)

// Pool runs submitted tasks on a fixed set of workers. Submit never blocks the caller.
type Pool struct {
	tasks  chan func()
	wg     conc.WaitGroup
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func New(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		tasks:  make(chan func(), queueSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Go(p.work)
	}
	return p
}

func (p *Pool) work() {
	for task := range p.tasks {
		p.run(task)
	}
}

// run executes one task; a panic is logged and the worker keeps going.
func (p *Pool) run(task func()) {
	var pc panics.Catcher
	pc.Try(task)
	if r := pc.Recovered(); r != nil {
		p.logger.Error("task panicked",
			zap.Any("panic", r.Value),
			zap.ByteString("stack", r.Stack),
		)
	}
}

// Submit enqueues task. It returns ErrPoolFull when the queue has no room and
// ErrPoolClosed after Close.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to expire.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
