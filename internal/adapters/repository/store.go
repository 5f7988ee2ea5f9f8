// Package repository implements the durable stores behind topics,
// subscriptions and archived events on top of a small key-value contract.
package repository

import (
	"context"
)

// Table names, one per record kind.
const (
	TopicTable        = "topic"
	SubscriptionTable = "subscription"
	EventTable        = "tweets"
)

// Item is a single stored record. Err is set instead of Value when the
// backend returned a malformed record; the scan itself stays valid.
type Item struct {
	Key   string
	Value []byte
	Err   error
}

// Page is one slice of a scan. Next is empty once the scan is exhausted;
// otherwise it is the continuation token for the following call.
type Page struct {
	Items []Item
	Next  string
}

// KV provides the get/put/scan primitives every store is built on.
// Implementations guarantee atomic single-key reads and writes only.
type KV interface {
	// Get returns the value for key or an error wrapping model.ErrNotFound.
	Get(ctx context.Context, table, key string) ([]byte, error)

	// Put writes value under key, replacing any previous value.
	Put(ctx context.Context, table, key string, value []byte) error

	// PutIfAbsent writes value only when key is not present.
	// Returns false when another value already exists.
	PutIfAbsent(ctx context.Context, table, key string, value []byte) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, table, key string) error

	// Scan returns up to limit items positioned after cursor.
	// An empty cursor starts from the beginning. Order is backend-defined.
	Scan(ctx context.Context, table, cursor string, limit int) (Page, error)

	// Close releases backend resources.
	Close() error
}
