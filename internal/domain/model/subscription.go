package model

import (
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strings"
)

// ChannelType identifies the delivery channel of a subscription.
type ChannelType string

// Recognised channel kinds.
const (
	ChannelEmail   ChannelType = "email"
	ChannelDiscord ChannelType = "discord"
)

// ChannelTypes lists every recognised channel kind.
var ChannelTypes = []ChannelType{ChannelEmail, ChannelDiscord}

// ParseChannelType maps a raw type string onto a recognised channel kind.
func ParseChannelType(raw string) (ChannelType, error) {
	ct := ChannelType(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(ChannelTypes, ct) {
		return ct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSubscriptionType, raw)
}

// Subscription is a client's interest in a set of topics, delivered through a
// single channel. Exactly one of Email or URL is set, selected by Type.
type Subscription struct {
	ID     string      `json:"subscriptionId" koanf:"id"`
	Type   ChannelType `json:"type" koanf:"type"`
	Topics []string    `json:"topics" koanf:"topics"`
	Email  string      `json:"email,omitempty" koanf:"email"`
	URL    string      `json:"targetUrl,omitempty" koanf:"url"`
}

// Target returns the channel-specific endpoint.
func (s Subscription) Target() string {
	if s.Type == ChannelEmail {
		return s.Email
	}
	return s.URL
}

// Matches reports whether the subscription is interested in topic.
// An empty topic set matches nothing.
func (s Subscription) Matches(topic string) bool {
	return slices.Contains(s.Topics, topic)
}

// SetTarget stores target in the field selected by the subscription type.
func (s *Subscription) SetTarget(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("%w for %s subscription", ErrMissingTarget, s.Type)
	}
	switch s.Type {
	case ChannelEmail:
		addr, err := mail.ParseAddress(target)
		if err != nil {
			return fmt.Errorf("%w: %q is not an email address", ErrInvalidTarget, target)
		}
		s.Email, s.URL = addr.Address, ""
	case ChannelDiscord:
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("%w: %q is not a webhook url", ErrInvalidTarget, target)
		}
		s.URL, s.Email = target, ""
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSubscriptionType, s.Type)
	}
	return nil
}

// NormalizeTopics returns the distinct, trimmed, sorted topic names.
// A nil input yields an empty, non-nil set.
func NormalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
