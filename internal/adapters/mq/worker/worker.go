package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
)

// Processor handles one batch end to end.
type Processor interface {
	ProcessBatch(ctx context.Context, b model.Batch) (model.BatchReport, error)
}

// Source is the receive side of the batch queue.
type Source interface {
	Dequeue() <-chan model.Batch
	Close() error
}

// Pool runs a fixed number of workers over a queue.
type Pool struct {
	name      string
	size      int
	source    Source
	processor Processor
	logger    logger.Logger

	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	wg      sync.WaitGroup
	started atomic.Bool
}

// NewPool creates a pool of size workers. size < 1 selects NumCPU.
func NewPool(size int, source Source, processor Processor, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{name: "worker-pool", size: size, source: source, processor: processor}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	metrics.UpdateWorkerCount(size)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start launches the workers. They exit when ctx is cancelled or the queue
// is closed and drained. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, "worker-"+strconv.Itoa(i))
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.size))
}

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()
	batches := p.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			p.handle(ctx, name, b)
		}
	}
}

func (p *Pool) handle(ctx context.Context, name string, b model.Batch) {
	metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(p.active.Add(-1)))
		if r := recover(); r != nil {
			p.failed.Add(1)
			metrics.RecordWorkerError()
			p.logger.Error(ctx, "batch processing panicked",
				logger.String("worker", name),
				logger.String("batch", b.ID),
				logger.Any("panic", r))
		}
	}()

	report, err := p.processor.ProcessBatch(ctx, b)
	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError()
		p.logger.Error(ctx, "batch processing failed",
			logger.String("worker", name),
			logger.String("batch", b.ID),
			logger.Error(err))
		return
	}
	p.logger.Debug(ctx, "batch processed",
		logger.String("worker", name),
		logger.String("batch", b.ID),
		logger.Int("delivered", report.Delivery.Delivered),
		logger.Int("failed", report.Delivery.Failed))
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{Workers: p.size, Active: p.active.Load(), Processed: p.processed.Load(), Failed: p.failed.Load()}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.source.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info(ctx, "worker pool stopped", logger.Int64("processed", p.processed.Load()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
