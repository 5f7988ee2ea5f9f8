// Package topics owns the name-to-address mapping of notification topics.
package topics

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
)

// Store persists topic mappings.
type Store interface {
	GetTopic(ctx context.Context, name string) (model.Topic, error)
	// PutTopicIfAbsent writes t unless name is already mapped and returns
	// whichever mapping is stored afterwards.
	PutTopicIfAbsent(ctx context.Context, t model.Topic) (model.Topic, bool, error)
	Topics(ctx context.Context) iter.Seq2[model.Topic, error]
}

// Allocator asks the pub/sub system for a new topic address.
type Allocator interface {
	CreateTopic(ctx context.Context, name string) (string, error)
}

// Registry creates and resolves topics, idempotent by name.
type Registry struct {
	store     Store
	allocator Allocator
	log       logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger overrides the component logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry builds a Registry over store and allocator.
func NewRegistry(store Store, allocator Allocator, opts ...Option) *Registry {
	r := &Registry{store: store, allocator: allocator}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("topics")
	}
	return r
}

// CreateTopic returns the address mapped to name, allocating and persisting
// one on first use. Two first-time callers racing on the same name may both
// allocate; the conditional put keeps the first mapping and both callers
// return it.
func (r *Registry) CreateTopic(ctx context.Context, name string) (model.Topic, error) {
	name, err := model.NormalizeTopicName(name)
	if err != nil {
		return model.Topic{}, err
	}

	existing, err := r.store.GetTopic(ctx, name)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, model.ErrNotFound):
		return model.Topic{}, fmt.Errorf("lookup topic %s: %w", name, err)
	}

	address, err := r.allocator.CreateTopic(ctx, name)
	if err != nil {
		return model.Topic{}, fmt.Errorf("allocate topic %s: %w", name, err)
	}

	stored, created, err := r.store.PutTopicIfAbsent(ctx, model.Topic{Name: name, Address: address})
	if err != nil {
		return model.Topic{}, fmt.Errorf("store topic %s: %w", name, err)
	}
	if created {
		metrics.RecordTopicCreated()
		r.log.Info(ctx, "topic created", logger.String("topic", name), logger.String("address", stored.Address))
	} else if stored.Address != address {
		r.log.Warn(ctx, "lost topic creation race",
			logger.String("topic", name),
			logger.String("kept", stored.Address),
			logger.String("discarded", address))
	}
	return stored, nil
}

// ListTopics returns a lazy, restartable sequence over every stored topic.
func (r *Registry) ListTopics(ctx context.Context) iter.Seq2[model.Topic, error] {
	return r.store.Topics(ctx)
}

// Lookup resolves name without allocating. Unknown names yield ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, name string) (model.Topic, error) {
	name, err := model.NormalizeTopicName(name)
	if err != nil {
		return model.Topic{}, err
	}
	return r.store.GetTopic(ctx, name)
}

// Bootstrap creates every name in names, stopping at the first failure.
func (r *Registry) Bootstrap(ctx context.Context, names []string) ([]model.Topic, error) {
	out := make([]model.Topic, 0, len(names))
	for _, name := range names {
		t, err := r.CreateTopic(ctx, name)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}
