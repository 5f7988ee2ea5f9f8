package repository

import (
	"errors"
	"fmt"

	"github.com/okian/tweetcast/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrClosed        = errors.New("store closed")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrCorruptRecord = model.ErrCorruptRecord
)

func notFound(table, key string) error {
	return fmt.Errorf("%s %q: %w", table, key, model.ErrNotFound)
}

func corrupt(table, key, reason string) error {
	return fmt.Errorf("%w: %s %q: %s", ErrCorruptRecord, table, key, reason)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
