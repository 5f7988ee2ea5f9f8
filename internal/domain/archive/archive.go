// Package archive persists every processed event for audit and replay.
package archive

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/metrics"
)

// Store persists archive records keyed by event id.
type Store interface {
	PutEvent(ctx context.Context, rec model.ArchivedEvent) error
	Events(ctx context.Context) iter.Seq2[model.ArchivedEvent, error]
}

// Archive records events unconditionally, independent of fan-out.
type Archive struct {
	store Store
	now   func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// New builds an Archive over store.
func New(store Store, opts ...Option) *Archive {
	a := &Archive{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record writes one archive record per event of batch and returns how many
// were written. Writes continue past a failed event; failures are joined.
// Records are keyed by event id so a replayed batch does not duplicate them.
func (a *Archive) Record(ctx context.Context, batch model.Batch) (int, error) {
	at := a.now().UTC()
	var (
		written int
		errs    []error
	)
	for _, ev := range batch.Events {
		rec := model.ArchivedEvent{Event: ev, BatchID: batch.ID, ArchivedAt: at}
		if err := a.store.PutEvent(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("archive event %s: %w", ev.ID, err))
			continue
		}
		written++
	}
	metrics.RecordEventsArchived(written)
	return written, errors.Join(errs...)
}

// Events replays the archive.
func (a *Archive) Events(ctx context.Context) iter.Seq2[model.ArchivedEvent, error] {
	return a.store.Events(ctx)
}
