// Package client is an HTTP client for the tweetcast API plus a synthetic
// event generator for load tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/types"
)

const defaultTimeout = 10 * time.Second

// ErrBackpressure matches an APIError with status 429.
var ErrBackpressure = errors.New("server backpressure")

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tweetcast: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("tweetcast: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is reports backpressure replies as ErrBackpressure and 404 as
// model.ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBackpressure:
		return e.Status == http.StatusTooManyRequests
	case model.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client calls a tweetcast server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:9080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateTopic registers a topic, returning the stored one when it exists.
func (c *Client) CreateTopic(ctx context.Context, name string) (model.Topic, error) {
	var out model.Topic
	err := c.do(ctx, http.MethodPost, "/topics", types.TopicRequest{Name: name}, &out)
	return out, err
}

// ListTopics returns every topic.
func (c *Client) ListTopics(ctx context.Context) ([]model.Topic, error) {
	var out types.TopicList
	err := c.do(ctx, http.MethodGet, "/topics", nil, &out)
	return out.Topics, err
}

// CreateSubscription creates a subscription.
func (c *Client) CreateSubscription(ctx context.Context, req types.SubscriptionRequest) (types.SubscriptionCreated, error) {
	var out types.SubscriptionCreated
	err := c.do(ctx, http.MethodPost, "/subscriptions", req, &out)
	return out, err
}

// ListSubscriptions returns subscriptions, restricted to topic when non-empty.
func (c *Client) ListSubscriptions(ctx context.Context, topic string) ([]model.Subscription, error) {
	path := "/subscriptions"
	if topic != "" {
		path += "?topic=" + url.QueryEscape(topic)
	}
	var out types.SubscriptionList
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Subscriptions, err
}

// GetSubscription fetches one subscription.
func (c *Client) GetSubscription(ctx context.Context, id string) (model.Subscription, error) {
	var out model.Subscription
	err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, &out)
	return out, err
}

// DeleteSubscription removes a subscription.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(id), nil, nil)
}

// Notify processes events synchronously.
func (c *Client) Notify(ctx context.Context, events []model.ClassifiedEvent) (types.NotifyResponse, error) {
	var out types.NotifyResponse
	err := c.do(ctx, http.MethodPost, "/notify", events, &out)
	return out, err
}

// Ingest queues events for asynchronous processing.
func (c *Client) Ingest(ctx context.Context, events []model.ClassifiedEvent) (types.IngestResponse, error) {
	var out types.IngestResponse
	err := c.do(ctx, http.MethodPost, "/events", events, &out)
	return out, err
}

// Stats returns the server runtime counters.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var er types.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Message != "" {
			apiErr.Code, apiErr.Message = er.Code, er.Message
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
