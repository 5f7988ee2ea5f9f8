package repository

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/okian/tweetcast/internal/domain/model"
)

// TopicStore persists the permanent name -> address mapping.
type TopicStore struct {
	kv   KV
	opts storeOptions
}

// NewTopicStore creates a TopicStore on kv.
func NewTopicStore(kv KV, opts ...Option) *TopicStore {
	return &TopicStore{kv: kv, opts: applyOptions(opts)}
}

// GetTopic returns the topic stored under name.
func (s *TopicStore) GetTopic(ctx context.Context, name string) (model.Topic, error) {
	return getJSON[model.Topic](ctx, s.kv, TopicTable, name)
}

// PutTopicIfAbsent stores t unless a mapping for t.Name already exists, in
// which case the existing topic is returned with created=false.
func (s *TopicStore) PutTopicIfAbsent(ctx context.Context, t model.Topic) (stored model.Topic, created bool, err error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return model.Topic{}, false, err
	}
	ok, err := s.kv.PutIfAbsent(ctx, TopicTable, t.Name, raw)
	if err != nil {
		return model.Topic{}, false, err
	}
	if ok {
		return t, true, nil
	}
	existing, err := s.GetTopic(ctx, t.Name)
	if err != nil {
		return model.Topic{}, false, err
	}
	return existing, false, nil
}

// Topics returns a lazy, restartable sequence over all stored topics.
func (s *TopicStore) Topics(ctx context.Context) iter.Seq2[model.Topic, error] {
	return scanAll[model.Topic](ctx, s.kv, TopicTable, s.opts.pageSize)
}
