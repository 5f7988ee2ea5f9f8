// Package pubsub allocates topic addresses on a publish/subscribe system and
// publishes topic broadcasts to them.
package pubsub

import (
	"context"
	"errors"
)

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("pubsub: broker closed")

// Broker is the pub/sub capability used by the topic registry and the
// broadcast step. Implementations: InMemoryBroker and SNSBroker.
type Broker interface {
	// CreateTopic allocates, or returns the existing, address for name.
	CreateTopic(ctx context.Context, name string) (string, error)
	// Publish sends a message to every endpoint subscribed to address.
	Publish(ctx context.Context, address, subject, message string) error
	// Subscribe registers endpoint on address using protocol (e.g. "email").
	Subscribe(ctx context.Context, address, protocol, endpoint string) error
	Close() error
}
