// Package fanout matches classified events against subscriptions and drives
// one delivery per matching pair.
package fanout

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
)

const defaultConcurrency = 8

// Source yields the subscriptions to consider, optionally restricted to kinds.
type Source interface {
	Subscriptions(ctx context.Context, kinds ...model.ChannelType) iter.Seq2[model.Subscription, error]
}

// Deliverer sends one notification to one channel target.
type Deliverer interface {
	Deliver(ctx context.Context, kind model.ChannelType, target string, n model.Notification) error
}

// Engine fans a batch of events out to matching subscriptions.
type Engine struct {
	source      Source
	deliverer   Deliverer
	concurrency int
	channels    []model.ChannelType
	log         logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds in-flight deliveries.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithChannels restricts fan-out to subscriptions of the given kinds.
func WithChannels(kinds ...model.ChannelType) Option {
	return func(e *Engine) {
		e.channels = kinds
	}
}

// WithLogger overrides the component logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine builds an Engine reading subscriptions from source.
func NewEngine(source Source, deliverer Deliverer, opts ...Option) *Engine {
	e := &Engine{source: source, deliverer: deliverer, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("fanout")
	}
	return e
}

// Dispatch delivers every event to every subscription whose topic set
// contains the event topic. Individual delivery failures are collected in
// the report and never stop other deliveries. Once ctx is done no further
// deliveries start; the remaining pairs are reported as failed. An error is
// returned only when the subscription set cannot be loaded, in which case
// nothing is delivered.
func (e *Engine) Dispatch(ctx context.Context, events []model.ClassifiedEvent) (model.DeliveryReport, error) {
	var report model.DeliveryReport
	if len(events) == 0 {
		return report, nil
	}

	subs, err := e.load(ctx)
	if err != nil {
		return report, err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.concurrency)

	for _, ev := range events {
		n := ev.Notification()
		for _, sub := range subs {
			if !sub.Matches(ev.Topic) {
				continue
			}
			report.Matched++
			if err := ctx.Err(); err != nil {
				mu.Lock()
				report.Failed++
				report.Errors = append(report.Errors, &model.DeliveryError{
					SubscriptionID: sub.ID, EventID: ev.ID, Channel: sub.Type, Err: err,
				})
				mu.Unlock()
				metrics.RecordDelivery(string(sub.Type), metrics.OutcomeFailure, 0)
				continue
			}
			g.Go(func() error {
				start := time.Now()
				err := e.deliver(ctx, sub, n)
				latency := float64(time.Since(start).Microseconds()) / 1000

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed++
					report.Errors = append(report.Errors, &model.DeliveryError{
						SubscriptionID: sub.ID, EventID: ev.ID, Channel: sub.Type, Err: err,
					})
					metrics.RecordDelivery(string(sub.Type), metrics.OutcomeFailure, latency)
					e.log.Warn(ctx, "delivery failed",
						logger.String("subscription", sub.ID),
						logger.String("event", ev.ID),
						logger.String("channel", string(sub.Type)),
						logger.Error(err))
					return nil
				}
				report.Delivered++
				metrics.RecordDelivery(string(sub.Type), metrics.OutcomeSuccess, latency)
				return nil
			})
		}
	}
	_ = g.Wait()

	slices.SortFunc(report.Errors, func(a, b *model.DeliveryError) int {
		return cmp.Or(cmp.Compare(a.EventID, b.EventID), cmp.Compare(a.SubscriptionID, b.SubscriptionID))
	})
	e.log.Debug(ctx, "fan-out complete",
		logger.Int("events", len(events)),
		logger.Int("matched", report.Matched),
		logger.Int("delivered", report.Delivered),
		logger.Int("failed", report.Failed))
	return report, nil
}

// load drains the subscription source. Corrupt records are skipped; any
// other error aborts the load so no batch is matched against a partial set.
func (e *Engine) load(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	for sub, err := range e.source.Subscriptions(ctx, e.channels...) {
		if errors.Is(err, model.ErrCorruptRecord) {
			e.log.Warn(ctx, "skipping unreadable subscription", logger.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load subscriptions: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// deliver isolates a single delivery, turning panics into errors.
func (e *Engine) deliver(ctx context.Context, sub model.Subscription, n model.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()
	return e.deliverer.Deliver(ctx, sub.Type, sub.Target(), n)
}
