// Package types contains the wire shapes shared by the HTTP API and its
// clients.
package types

import (
	"fmt"
	"strings"

	"github.com/okian/tweetcast/internal/domain/model"
)

// TopicRequest is the body of POST /topics.
type TopicRequest struct {
	Name string `json:"name"`
}

// TopicList is the body of GET /topics.
type TopicList struct {
	Topics []model.Topic `json:"topics"`
}

// SubscriptionRequest is the body of POST /subscriptions. The target is
// carried under a type-specific field: email for email subscriptions, url or
// DiscordUrl for Discord webhooks.
type SubscriptionRequest struct {
	Type       string   `json:"type"`
	Topics     []string `json:"topics"`
	Email      string   `json:"email,omitempty"`
	URL        string   `json:"url,omitempty"`
	DiscordURL string   `json:"DiscordUrl,omitempty"`
}

// Target returns the endpoint field matching the requested type.
func (r SubscriptionRequest) Target() string {
	if strings.EqualFold(strings.TrimSpace(r.Type), string(model.ChannelEmail)) {
		return r.Email
	}
	if r.URL != "" {
		return r.URL
	}
	return r.DiscordURL
}

// SubscriptionCreated is the body returned after a subscription is created.
type SubscriptionCreated struct {
	Message        string            `json:"message"`
	SubscriptionID string            `json:"subscriptionId"`
	Type           model.ChannelType `json:"type"`
}

// SubscriptionList is the body of GET /subscriptions.
type SubscriptionList struct {
	Subscriptions []model.Subscription `json:"subscriptions"`
}

// DeliveryFailure is one failed delivery in a notify response.
type DeliveryFailure struct {
	SubscriptionID string `json:"subscriptionId"`
	EventID        string `json:"eventId"`
	Channel        string `json:"channel"`
	Error          string `json:"error"`
}

// BroadcastFailure is one failed topic publish in a notify response.
type BroadcastFailure struct {
	EventID string `json:"eventId"`
	Topic   string `json:"topic"`
	Error   string `json:"error"`
}

// NotifyResponse is the body of POST /notify.
type NotifyResponse struct {
	Message           string             `json:"message"`
	Archive           string             `json:"archive"`
	BatchID           string             `json:"batchId"`
	Archived          int                `json:"archived"`
	Matched           int                `json:"matched"`
	Delivered         int                `json:"delivered"`
	Failed            int                `json:"failed"`
	Broadcast         int                `json:"broadcast"`
	Failures          []DeliveryFailure  `json:"failures,omitempty"`
	BroadcastFailures []BroadcastFailure `json:"broadcastFailures,omitempty"`
}

// NewNotifyResponse renders a batch report.
func NewNotifyResponse(r model.BatchReport) NotifyResponse {
	resp := NotifyResponse{
		Message:   fmt.Sprintf("Notified %d channel(s).", r.Delivery.Delivered),
		Archive:   fmt.Sprintf("Added %d records to db.", r.Archived),
		BatchID:   r.BatchID,
		Archived:  r.Archived,
		Matched:   r.Delivery.Matched,
		Delivered: r.Delivery.Delivered,
		Failed:    r.Delivery.Failed,
		Broadcast: r.Broadcast,
	}
	for _, e := range r.Delivery.Errors {
		resp.Failures = append(resp.Failures, DeliveryFailure{
			SubscriptionID: e.SubscriptionID,
			EventID:        e.EventID,
			Channel:        string(e.Channel),
			Error:          e.Err.Error(),
		})
	}
	for _, f := range r.BroadcastFailures {
		resp.BroadcastFailures = append(resp.BroadcastFailures, BroadcastFailure{
			EventID: f.EventID,
			Topic:   f.Topic,
			Error:   f.Err.Error(),
		})
	}
	return resp
}

// IngestResponse is the body of POST /events.
type IngestResponse struct {
	Message    string `json:"message"`
	BatchID    string `json:"batchId,omitempty"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}

// NewIngestResponse renders an ingestion result.
func NewIngestResponse(r model.IngestResult) IngestResponse {
	return IngestResponse{
		Message:    fmt.Sprintf("Queued %d event(s).", r.Accepted),
		BatchID:    r.BatchID,
		Accepted:   r.Accepted,
		Duplicates: r.Duplicates,
	}
}

// ErrorResponse is the body of every error reply. Report is set when a
// notify batch failed part way and some work was already done.
type ErrorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Report  *NotifyResponse `json:"report,omitempty"`
}
