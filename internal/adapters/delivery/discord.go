package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/tweetcast/internal/domain/model"
)

const (
	discordMaxContent     = 2000
	defaultDiscordTimeout = 5 * time.Second
)

// DiscordSender posts notifications to Discord webhook URLs.
type DiscordSender struct {
	client   *http.Client
	username string
}

// DiscordOption configures a DiscordSender.
type DiscordOption func(*DiscordSender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(s *DiscordSender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) DiscordOption {
	return func(s *DiscordSender) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithUsername overrides the webhook's display name.
func WithUsername(name string) DiscordOption {
	return func(s *DiscordSender) { s.username = name }
}

// NewDiscordSender builds a DiscordSender.
func NewDiscordSender(opts ...DiscordOption) *DiscordSender {
	s := &DiscordSender{client: &http.Client{Timeout: defaultDiscordTimeout}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type discordPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Send posts the notification body as the message content.
func (s *DiscordSender) Send(ctx context.Context, target string, n model.Notification) error {
	body, err := json.Marshal(discordPayload{Content: truncateRunes(n.Body, discordMaxContent), Username: s.username})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord request: %w: %w", model.ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
