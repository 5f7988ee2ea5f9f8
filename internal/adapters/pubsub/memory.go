package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tweetcast/internal/domain/model"
)

const memoryAddressPrefix = "mem:topic:"

// Message is a publication retained by the in-memory broker.
type Message struct {
	Subject string
	Body    string
}

// Endpoint is a subscription retained by the in-memory broker.
type Endpoint struct {
	Protocol string
	Endpoint string
}

// InMemoryBroker is a single-process Broker that retains publications for
// inspection. Suitable for development and tests.
type InMemoryBroker struct {
	mu        sync.RWMutex
	topics    map[string]string // address -> name
	published map[string][]Message
	endpoints map[string][]Endpoint
	closed    bool
}

// NewInMemoryBroker creates an empty broker.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics:    make(map[string]string),
		published: make(map[string][]Message),
		endpoints: make(map[string][]Endpoint),
	}
}

func (b *InMemoryBroker) CreateTopic(_ context.Context, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", fmt.Errorf("create topic %s: %w: %w", name, model.ErrChannelUnavailable, ErrClosed)
	}
	address := memoryAddressPrefix + name
	b.topics[address] = name
	return address, nil
}

func (b *InMemoryBroker) Publish(_ context.Context, address, subject, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("publish to %s: %w: %w", address, model.ErrChannelUnavailable, ErrClosed)
	}
	if _, ok := b.topics[address]; !ok {
		return fmt.Errorf("publish to %s: %w", address, model.ErrNotFound)
	}
	b.published[address] = append(b.published[address], Message{Subject: subject, Body: message})
	return nil
}

func (b *InMemoryBroker) Subscribe(_ context.Context, address, protocol, endpoint string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("subscribe to %s: %w: %w", address, model.ErrChannelUnavailable, ErrClosed)
	}
	if _, ok := b.topics[address]; !ok {
		return fmt.Errorf("subscribe to %s: %w", address, model.ErrNotFound)
	}
	for _, e := range b.endpoints[address] {
		if e.Protocol == protocol && e.Endpoint == endpoint {
			return nil
		}
	}
	b.endpoints[address] = append(b.endpoints[address], Endpoint{Protocol: protocol, Endpoint: endpoint})
	return nil
}

// Published returns a copy of the messages sent to address.
func (b *InMemoryBroker) Published(address string) []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Message(nil), b.published[address]...)
}

// Endpoints returns a copy of the endpoints subscribed to address.
func (b *InMemoryBroker) Endpoints(address string) []Endpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Endpoint(nil), b.endpoints[address]...)
}

func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
