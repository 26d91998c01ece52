package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatWorker/worker/models"
	"chatWorker/worker/pool"
)

// Source delivers chat events until ctx is cancelled.
type Source interface {
	Consume(ctx context.Context, handler func(context.Context, *models.ChatEvent) error) error
}

type EventHandler interface {
	Handle(ctx context.Context, ev *models.ChatEvent) error
}

// Processor pulls events from a transport and fans them out to the
// dispatcher through a bounded pool.
type Processor struct {
	source  Source
	pool    *pool.WorkerPool
	handler EventHandler
	logger  *zap.Logger
}

func NewProcessor(source Source, workers *pool.WorkerPool, handler EventHandler, logger *zap.Logger) *Processor {
	return &Processor{
		source:  source,
		pool:    workers,
		handler: handler,
		logger:  logger,
	}
}

// Run consumes until ctx is cancelled, then lets in-flight tasks finish for
// up to drainTimeout before cancelling them.
func (p *Processor) Run(ctx context.Context, drainTimeout time.Duration) error {
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	err := p.source.Consume(ctx, func(acquireCtx context.Context, ev *models.ChatEvent) error {
		return p.pool.Submit(acquireCtx, workCtx, ev, p.process)
	})
	if err != nil {
		p.logger.Error("Event consumer stopped", zap.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		p.pool.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.logger.Info("All in-flight tasks finished")
	case <-time.After(drainTimeout):
		p.logger.Warn("Drain timeout reached, cancelling in-flight tasks")
		cancelWork()
		<-drained
	}
	return err
}

func (p *Processor) process(ctx context.Context, ev *models.ChatEvent) {
	if err := p.handler.Handle(ctx, ev); err != nil {
		p.logger.Error("Failed to process chat event",
			zap.String("message_id", ev.ID),
			zap.String("chat_id", ev.ChatID),
			zap.Error(err),
		)
	}
}
