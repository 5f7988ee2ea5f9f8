// Package service composes the registry, subscription, fan-out and archive
// components into the tweetcast batch pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tweetcast/internal/adapters/mq/queue"
	"github.com/okian/tweetcast/internal/adapters/mq/worker"
	"github.com/okian/tweetcast/internal/domain/archive"
	"github.com/okian/tweetcast/internal/domain/dedupe"
	"github.com/okian/tweetcast/internal/domain/fanout"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/internal/domain/topics"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
)

// Publisher publishes a message to a topic address on the pub/sub system.
type Publisher interface {
	Publish(ctx context.Context, address, subject, message string) error
}

// Components are the domain collaborators a Service drives.
type Components struct {
	Topics        *topics.Registry
	Subscriptions *subscriptions.Manager
	Fanout        *fanout.Engine
	Archive       *archive.Archive
	// Publisher is required only when broadcasting is enabled.
	Publisher Publisher
}

// Service runs the batch pipeline and the asynchronous ingestion path.
type Service struct {
	c Components

	mu      sync.RWMutex
	started bool

	workerCount     int
	queueSize       int
	dedupeSize      int
	broadcast       bool
	bootstrapTopics []string
	ingest          IngestReader
	closers         []io.Closer
	newID           func() string
	now             func() time.Time

	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	stopIngest context.CancelFunc
	ingestDone chan struct{}
	stopPool   context.CancelFunc

	logger logger.Logger
}

// New creates a Service over the given components.
func New(c Components, opts ...Option) *Service {
	s := &Service{
		c:           c,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start bootstraps topics, starts the worker pool and, when configured, the
// ingestion consumer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	if len(s.bootstrapTopics) > 0 {
		if _, err := s.c.Topics.Bootstrap(ctx, s.bootstrapTopics); err != nil {
			return fmt.Errorf("bootstrap topics: %w", err)
		}
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s,
		worker.WithName("batch-workers"),
		worker.WithLogger(s.logger.Named("workers")))

	poolCtx, stopPool := context.WithCancel(context.WithoutCancel(ctx))
	s.stopPool = stopPool
	s.pool.Start(poolCtx)

	if s.ingest != nil {
		ingestCtx, stopIngest := context.WithCancel(context.WithoutCancel(ctx))
		s.stopIngest = stopIngest
		s.ingestDone = make(chan struct{})
		go func() {
			defer close(s.ingestDone)
			if err := s.ingest.Run(ingestCtx); err != nil {
				s.logger.Error(ingestCtx, "ingestion stopped", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Bool("broadcast", s.broadcast),
		logger.Bool("ingest", s.ingest != nil))
	return nil
}

// Stop halts ingestion, drains the queue and releases closers. Safe to call
// on a service that never started.
func (s *Service) Stop(ctx context.Context) error {
	var errs []error

	// The consumer enqueues under the read lock, so it must exit before
	// Stop takes the write lock.
	s.mu.RLock()
	stopIngest, ingestDone := s.stopIngest, s.ingestDone
	s.mu.RUnlock()
	if stopIngest != nil {
		stopIngest()
		select {
		case <-ingestDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("ingestion shutdown: %w", ctx.Err()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.stopIngest, s.ingestDone = nil, nil
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.stopPool()
		s.started = false
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	s.logger.Info(ctx, "service stopped")
	return errors.Join(errs...)
}

// ProcessBatch archives every event, fans them out to matching subscriptions
// and, when enabled, broadcasts them to their topic. Infrastructure errors
// are joined and returned with the partial report.
func (s *Service) ProcessBatch(ctx context.Context, b model.Batch) (model.BatchReport, error) {
	start := time.Now()
	if b.ID == "" {
		b.ID = s.newID()
	}
	if b.ReceivedAt.IsZero() {
		b.ReceivedAt = s.now()
	}
	report := model.BatchReport{BatchID: b.ID}

	for _, ev := range b.Events {
		if err := ev.Validate(); err != nil {
			metrics.RecordBatch(metrics.OutcomeFailure, len(b.Events), msSince(start))
			return report, err
		}
	}

	var errs []error
	archived, err := s.c.Archive.Record(ctx, b)
	report.Archived = archived
	if err != nil {
		errs = append(errs, fmt.Errorf("archive: %w", err))
	}

	delivery, err := s.c.Fanout.Dispatch(ctx, b.Events)
	report.Delivery = delivery
	if err != nil {
		errs = append(errs, fmt.Errorf("fan-out: %w", err))
	}

	if s.broadcast {
		s.broadcastEvents(ctx, b.Events, &report)
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case len(errs) > 0:
		outcome = metrics.OutcomeFailure
	case delivery.Failed > 0 || len(report.BroadcastFailures) > 0:
		outcome = metrics.OutcomePartial
	}
	metrics.RecordBatch(outcome, len(b.Events), msSince(start))

	s.logger.Info(ctx, "batch processed",
		logger.String("batch", b.ID),
		logger.Int("events", len(b.Events)),
		logger.Int("archived", report.Archived),
		logger.Int("matched", delivery.Matched),
		logger.Int("delivered", delivery.Delivered),
		logger.Int("failed", delivery.Failed),
		logger.Int("broadcast", report.Broadcast))
	return report, errors.Join(errs...)
}

func (s *Service) broadcastEvents(ctx context.Context, events []model.ClassifiedEvent, report *model.BatchReport) {
	for _, ev := range events {
		err := s.publish(ctx, ev)
		if err == nil {
			report.Broadcast++
			metrics.RecordBroadcast(metrics.OutcomeSuccess)
			continue
		}
		metrics.RecordBroadcast(metrics.OutcomeFailure)
		report.BroadcastFailures = append(report.BroadcastFailures, model.BroadcastFailure{
			EventID: ev.ID,
			Topic:   ev.Topic,
			Err:     err,
		})
		s.logger.Warn(ctx, "topic broadcast failed",
			logger.String("event", ev.ID),
			logger.String("topic", ev.Topic),
			logger.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, ev model.ClassifiedEvent) error {
	if s.c.Publisher == nil {
		return fmt.Errorf("%w: no publisher configured", model.ErrChannelUnavailable)
	}
	t, err := s.c.Topics.Lookup(ctx, ev.Topic)
	if err != nil {
		return err
	}
	return s.c.Publisher.Publish(ctx, t.Address, ev.Subject(), ev.Message())
}

// Enqueue validates events, drops those already seen and queues the rest as
// one batch for the worker pool.
func (s *Service) Enqueue(ctx context.Context, events []model.ClassifiedEvent) (model.IngestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.IngestResult{}, ErrNotStarted
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return model.IngestResult{}, err
		}
	}

	var res model.IngestResult
	fresh := make([]model.ClassifiedEvent, 0, len(events))
	for _, ev := range events {
		if s.deduper.SeenAndRecord(ctx, ev.ID) {
			res.Duplicates++
			metrics.RecordEventDuplicate()
			continue
		}
		fresh = append(fresh, ev)
	}
	if len(fresh) == 0 {
		return res, nil
	}

	b := model.Batch{ID: s.newID(), Events: fresh, ReceivedAt: s.now()}
	if err := s.queue.Enqueue(ctx, b); err != nil {
		for _, ev := range fresh {
			s.deduper.Unrecord(ctx, ev.ID)
		}
		return model.IngestResult{Duplicates: res.Duplicates}, err
	}
	res.BatchID = b.ID
	res.Accepted = len(fresh)
	return res, nil
}

// Ingest queues events for asynchronous processing.
func (s *Service) Ingest(ctx context.Context, events []model.ClassifiedEvent) error {
	_, err := s.Enqueue(ctx, events)
	return err
}

// Bootstrap creates the configured bootstrap topics plus any extra names.
func (s *Service) Bootstrap(ctx context.Context, extra ...string) ([]model.Topic, error) {
	names := append(append([]string(nil), s.bootstrapTopics...), extra...)
	return s.c.Topics.Bootstrap(ctx, names)
}

// CreateTopic registers a topic, returning the existing one when present.
func (s *Service) CreateTopic(ctx context.Context, name string) (model.Topic, error) {
	return s.c.Topics.CreateTopic(ctx, name)
}

// ListTopics streams every registered topic.
func (s *Service) ListTopics(ctx context.Context) iter.Seq2[model.Topic, error] {
	return s.c.Topics.ListTopics(ctx)
}

// CreateSubscription validates and stores a subscription.
func (s *Service) CreateSubscription(ctx context.Context, req subscriptions.CreateRequest) (model.Subscription, error) {
	return s.c.Subscriptions.Create(ctx, req)
}

// GetSubscription returns the subscription with id.
func (s *Service) GetSubscription(ctx context.Context, id string) (model.Subscription, error) {
	return s.c.Subscriptions.Get(ctx, id)
}

// DeleteSubscription removes a subscription; absent ids are not an error.
func (s *Service) DeleteSubscription(ctx context.Context, id string) error {
	return s.c.Subscriptions.Delete(ctx, id)
}

// ListSubscriptions streams subscriptions, restricted to topic when non-empty.
func (s *Service) ListSubscriptions(ctx context.Context, topic string) iter.Seq2[model.Subscription, error] {
	return s.c.Subscriptions.List(ctx, topic)
}

// ArchivedEvents streams the event archive.
func (s *Service) ArchivedEvents(ctx context.Context) iter.Seq2[model.ArchivedEvent, error] {
	return s.c.Archive.Events(ctx)
}

// GetStats returns runtime counters for the stats endpoint.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"broadcast":   s.broadcast,
		"ingest":      s.ingest != nil,
		"worker_size": s.workerCount,
		"queue_cap":   s.queueSize,
	}
	if !s.started {
		return stats
	}
	stats["queue_len"] = s.queue.Len()
	stats["dedupe_size"] = s.deduper.Size()
	stats["workers"] = s.pool.Stats()
	return stats
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
