package pool

import (
	"context"
	"sync"

	"chatWorker/worker/models"
)

type Handler func(context.Context, *models.ChatEvent)

// WorkerPool runs at most maxWorkers handlers at once. Submit blocks while
// the pool is full so transports stop pulling events they cannot run.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

// Submit waits for a free slot on acquireCtx and runs handler with runCtx.
func (p *WorkerPool) Submit(acquireCtx, runCtx context.Context, ev *models.ChatEvent, handler Handler) error {
	select {
	case p.sem <- struct{}{}:
	case <-acquireCtx.Done():
		return acquireCtx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		handler(runCtx, ev)
	}()
	return nil
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
