// Package dedupe tracks recently ingested event keys so redelivered
// classifier output is not fanned out twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already seen and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool
	// Unrecord forgets key so a failed hand-off can be retried.
	Unrecord(ctx context.Context, key string)
	Size() int64
}

// window remembers the most recent maxSize keys and evicts the oldest first.
type window struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	seen    map[string]*list.Element
}

// NewInMemoryDeduper creates a bounded in-memory window.
func NewInMemoryDeduper(opts ...Option) Deduper {
	w := &window{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(w)
	}
	w.order = list.New()
	w.seen = make(map[string]*list.Element)
	return w
}

func (w *window) SeenAndRecord(_ context.Context, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[key]; ok {
		return true
	}
	if w.order.Len() >= w.maxSize {
		oldest := w.order.Front()
		w.order.Remove(oldest)
		delete(w.seen, oldest.Value.(string))
	}
	w.seen[key] = w.order.PushBack(key)
	return false
}

func (w *window) Unrecord(_ context.Context, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if el, ok := w.seen[key]; ok {
		w.order.Remove(el)
		delete(w.seen, key)
	}
}

func (w *window) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(w.order.Len())
}
