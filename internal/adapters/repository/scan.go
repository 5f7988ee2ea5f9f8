package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
)

// scanAll returns a lazy sequence over every record of table, fetching one
// page at a time and following continuation tokens until exhausted. Each
// range over the sequence starts a fresh scan.
func scanAll[T any](ctx context.Context, kv KV, table string, pageSize int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cursor := ""
		for {
			page, err := kv.Scan(ctx, table, cursor, pageSize)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range page.Items {
				if item.Err != nil {
					if !yield(zero, item.Err) {
						return
					}
					continue
				}
				var v T
				if err := json.Unmarshal(item.Value, &v); err != nil {
					if !yield(zero, fmt.Errorf("%w: %s %q: %w", ErrCorruptRecord, table, item.Key, err)) {
						return
					}
					continue
				}
				if !yield(v, nil) {
					return
				}
			}
			if page.Next == "" {
				return
			}
			cursor = page.Next
		}
	}
}

func getJSON[T any](ctx context.Context, kv KV, table, key string) (T, error) {
	var v T
	raw, err := kv.Get(ctx, table, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %s %q: %w", ErrCorruptRecord, table, key, err)
	}
	return v, nil
}
