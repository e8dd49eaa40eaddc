package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool drains the queue with a fixed number of worker goroutines.
type Pool struct {
	queue       *Queue
	pipeline    *Pipeline
	concurrency int
	logger      *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPool creates a worker pool over the ingest queue.
func NewPool(queue *Queue, pipeline *Pipeline, concurrency int, logger *zap.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		queue:       queue,
		pipeline:    pipeline,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start launches the worker goroutines. They run until Stop is called or
// the context is cancelled. Calling Start on a running pool is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	p.logger.Info("Ingest pool starting", zap.Int("concurrency", p.concurrency))

	// Stop cancels dequeueCtx only: a task already running keeps the
	// parent context and finishes before its worker exits.
	dequeueCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, dequeueCtx, workerID)
		}(i)
	}

	go func() {
		select {
		case <-p.stopCh:
		case <-ctx.Done():
		}
		cancel()
		wg.Wait()
		close(p.doneCh)
	}()
}

// Stop signals the workers and blocks until they exit. The task a worker
// is processing runs to its terminal status first.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.mu.Unlock()

	<-p.doneCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("Ingest pool stopped")
}

// Running reports whether the pool has active workers.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pool) loop(ctx, dequeueCtx context.Context, workerID int) {
	log := p.logger.With(zap.Int("worker", workerID))
	log.Debug("Worker started")

	for {
		task, ok := p.queue.Dequeue(dequeueCtx)
		if !ok {
			log.Debug("Worker stopping")
			return
		}
		// Run logs and records the outcome itself.
		_ = p.pipeline.Run(ctx, task)
	}
}
