// Package subscriptions validates, stores and queries topic subscriptions.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
)

// Store persists subscription records.
type Store interface {
	PutSubscription(ctx context.Context, sub model.Subscription) error
	GetSubscription(ctx context.Context, id string) (model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	Subscriptions(ctx context.Context) iter.Seq2[model.Subscription, error]
}

// TopicResolver maps a topic name to its stored address.
type TopicResolver interface {
	Lookup(ctx context.Context, name string) (model.Topic, error)
}

// TopicSubscriber registers an endpoint on a pub/sub topic.
type TopicSubscriber interface {
	Subscribe(ctx context.Context, topicAddress, protocol, endpoint string) error
}

// CreateRequest is the client input for a new subscription.
type CreateRequest struct {
	Type   string
	Topics []string
	Target string
}

// Manager creates and queries subscriptions.
type Manager struct {
	store      Store
	newID      func() string
	resolver   TopicResolver
	subscriber TopicSubscriber
	log        logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the component logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithChannelSubscriptions subscribes new email targets to the pub/sub
// address of every referenced topic before the record is written.
func WithChannelSubscriptions(resolver TopicResolver, subscriber TopicSubscriber) Option {
	return func(m *Manager) {
		m.resolver, m.subscriber = resolver, subscriber
	}
}

// NewManager builds a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get().Named("subscriptions")
	}
	return m
}

// Create validates req, writes the record and returns it with its fresh id.
// Validation failures write nothing.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (model.Subscription, error) {
	kind, err := model.ParseChannelType(req.Type)
	if err != nil {
		return model.Subscription{}, err
	}
	sub := model.Subscription{Type: kind, Topics: model.NormalizeTopics(req.Topics)}
	if err := sub.SetTarget(req.Target); err != nil {
		return model.Subscription{}, err
	}
	sub.ID = m.newID()

	if err := m.subscribeNative(ctx, sub); err != nil {
		return model.Subscription{}, err
	}
	if err := m.store.PutSubscription(ctx, sub); err != nil {
		return model.Subscription{}, fmt.Errorf("store subscription: %w", err)
	}

	metrics.RecordSubscriptionCreated(string(kind))
	m.log.Info(ctx, "subscription created",
		logger.String("id", sub.ID),
		logger.String("type", string(kind)),
		logger.Strings("topics", sub.Topics))
	return sub, nil
}

func (m *Manager) subscribeNative(ctx context.Context, sub model.Subscription) error {
	if m.subscriber == nil || m.resolver == nil || sub.Type != model.ChannelEmail {
		return nil
	}
	for _, name := range sub.Topics {
		topic, err := m.resolver.Lookup(ctx, name)
		if errors.Is(err, model.ErrNotFound) {
			m.log.Warn(ctx, "skipping unknown topic for channel subscription", logger.String("topic", name))
			continue
		}
		if err != nil {
			return fmt.Errorf("resolve topic %s: %w", name, err)
		}
		if err := m.subscriber.Subscribe(ctx, topic.Address, string(model.ChannelEmail), sub.Email); err != nil {
			return fmt.Errorf("subscribe %s to %s: %w", sub.Email, name, err)
		}
	}
	return nil
}

// Get returns the subscription with id or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (model.Subscription, error) {
	return m.store.GetSubscription(ctx, id)
}

// Delete removes the subscription. Deleting an unknown id succeeds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	metrics.RecordSubscriptionDeleted()
	m.log.Info(ctx, "subscription deleted", logger.String("id", id))
	return nil
}

// List returns a lazy, restartable sequence of subscriptions. A non-empty
// topic restricts it to subscriptions interested in that topic.
func (m *Manager) List(ctx context.Context, topic string) iter.Seq2[model.Subscription, error] {
	return filter(m.store.Subscriptions(ctx), func(s model.Subscription) bool {
		return topic == "" || s.Matches(topic)
	})
}

// Subscriptions yields every stored subscription of the given kinds, or all
// of them when no kind is given.
func (m *Manager) Subscriptions(ctx context.Context, kinds ...model.ChannelType) iter.Seq2[model.Subscription, error] {
	return filter(m.store.Subscriptions(ctx), ofKinds(kinds))
}

func ofKinds(kinds []model.ChannelType) func(model.Subscription) bool {
	return func(s model.Subscription) bool {
		return len(kinds) == 0 || slices.Contains(kinds, s.Type)
	}
}

func filter(seq iter.Seq2[model.Subscription, error], keep func(model.Subscription) bool) iter.Seq2[model.Subscription, error] {
	return func(yield func(model.Subscription, error) bool) {
		for sub, err := range seq {
			if err != nil {
				if !yield(model.Subscription{}, err) {
					return
				}
				continue
			}
			if keep(sub) && !yield(sub, nil) {
				return
			}
		}
	}
}
