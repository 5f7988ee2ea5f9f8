// Package delivery implements the per-channel delivery capability: Discord
// webhooks, SMTP email and a dry-run logger.
package delivery

import (
	"context"
	"fmt"

	"github.com/okian/tweetcast/internal/domain/model"
)

// Sender delivers a notification to one target of its channel.
type Sender interface {
	Send(ctx context.Context, target string, n model.Notification) error
}

// Router dispatches to the Sender registered for a channel kind.
type Router struct {
	senders map[model.ChannelType]Sender
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{senders: make(map[model.ChannelType]Sender)}
}

// Register installs s for kind, replacing any previous sender.
func (r *Router) Register(kind model.ChannelType, s Sender) *Router {
	r.senders[kind] = s
	return r
}

// Deliver sends n to target through the sender for kind.
func (r *Router) Deliver(ctx context.Context, kind model.ChannelType, target string, n model.Notification) error {
	s, ok := r.senders[kind]
	if !ok {
		return fmt.Errorf("no sender for %s: %w", kind, model.ErrChannelUnavailable)
	}
	return s.Send(ctx, target, n)
}
