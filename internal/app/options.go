package service

import (
	"context"
	"io"
	"time"

	"github.com/okian/tweetcast/pkg/logger"
)

const (
	defaultWorkerCount = 4
	defaultQueueSize   = 1024
	defaultDedupeSize  = 50_000
)

// IngestReader is a long-running event source, such as the Kafka consumer.
type IngestReader interface {
	Run(ctx context.Context) error
}

// Option configures a Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the asynchronous batch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the ingestion dedupe window.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBroadcast publishes every processed event to its topic address.
func WithBroadcast(enabled bool) Option {
	return func(s *Service) {
		s.broadcast = enabled
	}
}

// WithBootstrapTopics lists topics created on Start.
func WithBootstrapTopics(names ...string) Option {
	return func(s *Service) {
		s.bootstrapTopics = append(s.bootstrapTopics, names...)
	}
}

// WithIngestReader runs r for the lifetime of the service.
func WithIngestReader(r IngestReader) Option {
	return func(s *Service) {
		s.ingest = r
	}
}

// WithCloser registers a resource released by Stop, in reverse order.
func WithCloser(c io.Closer) Option {
	return func(s *Service) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// WithIDGenerator overrides batch id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the time source stamped on batches.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}
