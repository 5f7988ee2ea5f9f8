package service

import (
	"errors"
	"fmt"

	"github.com/okian/tweetcast/internal/adapters/mq/queue"
)

var (
	// ErrAlreadyStarted is returned by Start on a running service.
	ErrAlreadyStarted = errors.New("service already started")
	// ErrNotStarted is returned by asynchronous ingestion outside Start and
	// Stop. It matches queue.ErrClosed.
	ErrNotStarted = fmt.Errorf("service not started: %w", queue.ErrClosed)
)
