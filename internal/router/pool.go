package router

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkerCount is the number of workers when no size is specified.
const DefaultWorkerCount = 4

// WorkerPool manages a fixed set of goroutines that consume from the inbox.
type WorkerPool struct {
	size int
	g    errgroup.Group
}

// NewWorkerPool creates a pool with the given size.
// If size <= 0, DefaultWorkerCount is used.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = DefaultWorkerCount
	}
	return &WorkerPool{size: size}
}

// Start launches worker goroutines that consume messages from inbox until
// it is closed.
func (p *WorkerPool) Start(ctx context.Context, inbox <-chan envelope, handler func(context.Context, envelope)) {
	for range p.size {
		p.g.Go(func() error {
			for env := range inbox {
				handler(ctx, env)
			}
			return nil
		})
	}
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	_ = p.g.Wait()
}
