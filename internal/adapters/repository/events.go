package repository

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/okian/tweetcast/internal/domain/model"
)

// EventStore persists archived events keyed by source event id. Writing the
// same id twice overwrites, so each event has exactly one record.
type EventStore struct {
	kv   KV
	opts storeOptions
}

// NewEventStore creates an EventStore on kv.
func NewEventStore(kv KV, opts ...Option) *EventStore {
	return &EventStore{kv: kv, opts: applyOptions(opts)}
}

// PutEvent writes rec under its event id.
func (s *EventStore) PutEvent(ctx context.Context, rec model.ArchivedEvent) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, EventTable, rec.Event.ID, raw)
}

// Events returns a lazy sequence over archived events, for operators.
func (s *EventStore) Events(ctx context.Context) iter.Seq2[model.ArchivedEvent, error] {
	return scanAll[model.ArchivedEvent](ctx, s.kv, EventTable, s.opts.pageSize)
}
