package notify

import (
	"context"
	"errors"
)

// ErrPoolFull is returned by Submit when every worker is busy.
var ErrPoolFull = errors.New("notification pool full")

// Submitter runs fn asynchronously.
type Submitter interface {
	Submit(ctx context.Context, fn func()) error
}

// WorkerPool bounds concurrent outbound sends.
type WorkerPool struct {
	sem chan struct{}
}

// NewWorkerPool creates a worker pool with the given max concurrent workers.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{sem: make(chan struct{}, maxWorkers)}
}

// Submit runs fn in the pool without waiting for a free worker. It returns
// ErrPoolFull when all workers are busy and ctx.Err() when ctx is done.
func (p *WorkerPool) Submit(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.sem <- struct{}{}:
		go func() {
			defer func() { <-p.sem }()
			fn()
		}()
		return nil
	default:
		return ErrPoolFull
	}
}

// Wait blocks until every running job has finished or ctx is done.
func (p *WorkerPool) Wait(ctx context.Context) error {
	for range cap(p.sem) {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for range cap(p.sem) {
		<-p.sem
	}
	return nil
}
