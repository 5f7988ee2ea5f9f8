// Package kafka ingests classifier output from a Kafka topic into the batch
// queue.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/tweetcast/internal/adapters/mq/queue"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
)

const defaultBackoff = 250 * time.Millisecond

// Kafka message outcome label values.
const (
	outcomeInvalid  = "invalid"
	outcomeRejected = "rejected"
	outcomeRetry    = "retry"
)

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Sink accepts decoded events for asynchronous processing.
type Sink interface {
	Ingest(ctx context.Context, events []model.ClassifiedEvent) error
}

// Config selects the brokers, topic and consumer group.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewReader opens a consumer-group reader for cfg.
func NewReader(cfg Config) (*kafkago.Reader, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "tweetcast"
	}
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}), nil
}

// Consumer reads messages, hands them to a Sink and commits offsets once the
// sink has accepted them. Delivery is at-least-once.
type Consumer struct {
	reader  Reader
	sink    Sink
	backoff time.Duration
	log     logger.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithBackoff sets the pause between retries when the sink is full or the
// reader errors.
func WithBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.log = l
		}
	}
}

// NewConsumer builds a Consumer.
func NewConsumer(reader Reader, sink Sink, opts ...Option) *Consumer {
	c := &Consumer{reader: reader, sink: sink, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("kafka")
	}
	return c
}

// Run consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Warn(ctx, "closing kafka reader", logger.Error(err))
		}
	}()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error(ctx, "kafka fetch failed", logger.Error(err))
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}
		if !c.handle(ctx, msg) {
			return nil
		}
	}
}

// handle returns false when ctx ended before the message was settled.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) bool {
	events, err := model.DecodeEvents(msg.Value)
	if err != nil {
		metrics.RecordKafkaMessage(outcomeInvalid)
		c.log.Warn(ctx, "skipping undecodable kafka message",
			logger.Int64("offset", msg.Offset),
			logger.Int("partition", msg.Partition),
			logger.Error(err))
		return c.commit(ctx, msg)
	}

	for {
		err = c.sink.Ingest(ctx, events)
		if !errors.Is(err, queue.ErrFull) {
			break
		}
		metrics.RecordKafkaMessage(outcomeRetry)
		if !c.sleep(ctx) {
			return false
		}
	}
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
			return false
		}
		metrics.RecordKafkaMessage(outcomeRejected)
		c.log.Warn(ctx, "kafka message rejected",
			logger.Int64("offset", msg.Offset),
			logger.Error(err))
	} else {
		metrics.RecordKafkaMessage(metrics.OutcomeSuccess)
	}
	return c.commit(ctx, msg)
}

func (c *Consumer) commit(ctx context.Context, msg kafkago.Message) bool {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.log.Error(ctx, "kafka commit failed", logger.Int64("offset", msg.Offset), logger.Error(err))
	}
	return true
}

func (c *Consumer) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
