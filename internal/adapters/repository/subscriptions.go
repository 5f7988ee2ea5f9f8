package repository

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/okian/tweetcast/internal/domain/model"
)

// SubscriptionStore persists subscription records keyed by id.
type SubscriptionStore struct {
	kv   KV
	opts storeOptions
}

// NewSubscriptionStore creates a SubscriptionStore on kv.
func NewSubscriptionStore(kv KV, opts ...Option) *SubscriptionStore {
	return &SubscriptionStore{kv: kv, opts: applyOptions(opts)}
}

// PutSubscription writes s under its id.
func (s *SubscriptionStore) PutSubscription(ctx context.Context, sub model.Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, SubscriptionTable, sub.ID, raw)
}

// GetSubscription returns the subscription with id.
func (s *SubscriptionStore) GetSubscription(ctx context.Context, id string) (model.Subscription, error) {
	return getJSON[model.Subscription](ctx, s.kv, SubscriptionTable, id)
}

// DeleteSubscription removes the subscription with id, if present.
func (s *SubscriptionStore) DeleteSubscription(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, SubscriptionTable, id)
}

// Subscriptions returns a lazy, restartable sequence over all subscriptions.
func (s *SubscriptionStore) Subscriptions(ctx context.Context) iter.Seq2[model.Subscription, error] {
	return scanAll[model.Subscription](ctx, s.kv, SubscriptionTable, s.opts.pageSize)
}
