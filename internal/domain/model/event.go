package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ClassifiedEvent is a tweet-like record tagged with a single topic by the
// upstream classifier. Author, CreatedAt and Text are display payload only.
type ClassifiedEvent struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Author    string `json:"author"`
	CreatedAt string `json:"createdAt"`
	Text      string `json:"text"`
}

// UnmarshalJSON accepts both the canonical shape and the classifier's native
// tweet shape (id_str, topic_detected, created_at, user.screen_name).
func (e *ClassifiedEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            json.RawMessage `json:"id"`
		IDStr         string          `json:"id_str"`
		Topic         string          `json:"topic"`
		TopicDetected string          `json:"topic_detected"`
		Author        string          `json:"author"`
		CreatedAt     string          `json:"createdAt"`
		CreatedAtRaw  string          `json:"created_at"`
		Text          string          `json:"text"`
		User          struct {
			ScreenName string `json:"screen_name"`
		} `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = ClassifiedEvent{
		ID:        firstNonEmpty(raw.IDStr, rawID(raw.ID)),
		Topic:     firstNonEmpty(raw.Topic, raw.TopicDetected),
		Author:    firstNonEmpty(raw.Author, raw.User.ScreenName),
		CreatedAt: firstNonEmpty(raw.CreatedAt, raw.CreatedAtRaw),
		Text:      raw.Text,
	}
	return nil
}

// rawID renders a JSON id that may be either a string or a number.
func rawID(b json.RawMessage) string {
	if len(b) == 0 || string(b) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(b))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Validate checks the fields the pipeline relies on.
func (e ClassifiedEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case strings.TrimSpace(e.Topic) == "":
		return fmt.Errorf("%w: event %s has no topic", ErrInvalidEvent, e.ID)
	}
	return nil
}

// Message renders the human-readable notification text for the event.
func (e ClassifiedEvent) Message() string {
	return fmt.Sprintf("%s tweeted at %s about %s: \"%s\"", e.Author, e.CreatedAt, e.Topic, e.Text)
}

// Subject renders the notification subject line used by topic broadcasts.
func (e ClassifiedEvent) Subject() string {
	return "New tweet about " + e.Topic
}

// Notification is the rendered payload handed to a delivery channel.
type Notification struct {
	Subject string
	Body    string
}

// Notification renders the event for delivery.
func (e ClassifiedEvent) Notification() Notification {
	return Notification{Subject: e.Subject(), Body: e.Message()}
}

// Batch groups the events of one invocation.
type Batch struct {
	ID         string
	Events     []ClassifiedEvent
	ReceivedAt time.Time
}

// ArchivedEvent is the audit record written once per processed event.
type ArchivedEvent struct {
	Event      ClassifiedEvent `json:"event"`
	BatchID    string          `json:"batchId"`
	ArchivedAt time.Time       `json:"archivedAt"`
}

// DecodeEvents accepts a JSON array of events or a single event object.
func DecodeEvents(data []byte) ([]ClassifiedEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidEvent)
	}
	if trimmed[0] == '[' {
		var events []ClassifiedEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return events, nil
	}
	var ev ClassifiedEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return []ClassifiedEvent{ev}, nil
}
