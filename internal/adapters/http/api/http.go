// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/okian/tweetcast/internal/adapters/mq/queue"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/internal/domain/types"
	"github.com/okian/tweetcast/pkg/logger"
)

const maxBodyBytes = 1 << 20

// TopicService is the topic registry as seen by handlers.
type TopicService interface {
	CreateTopic(ctx context.Context, name string) (model.Topic, error)
	ListTopics(ctx context.Context) iter.Seq2[model.Topic, error]
}

// SubscriptionService is the subscription manager as seen by handlers.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req subscriptions.CreateRequest) (model.Subscription, error)
	GetSubscription(ctx context.Context, id string) (model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	ListSubscriptions(ctx context.Context, topic string) iter.Seq2[model.Subscription, error]
}

// EventService runs batches synchronously or queues them.
type EventService interface {
	ProcessBatch(ctx context.Context, b model.Batch) (model.BatchReport, error)
	Enqueue(ctx context.Context, events []model.ClassifiedEvent) (model.IngestResult, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	TopicService
	SubscriptionService
	EventService
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	topicsHandler        *TopicsHandler
	subscriptionsHandler *SubscriptionsHandler
	eventsHandler        *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	log := logger.Get().Named("api")
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		topicsHandler:        NewTopicsHandler(deps, log),
		subscriptionsHandler: NewSubscriptionsHandler(deps, log),
		eventsHandler:        NewEventsHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /topics", MetricsMiddleware(s.topicsHandler.HandleCreate, "topics"))
	mux.HandleFunc("GET /topics", MetricsMiddleware(s.topicsHandler.HandleList, "topics"))

	mux.HandleFunc("POST /subscriptions", MetricsMiddleware(s.subscriptionsHandler.HandleCreate, "subscriptions"))
	mux.HandleFunc("GET /subscriptions", MetricsMiddleware(s.subscriptionsHandler.HandleList, "subscriptions"))
	mux.HandleFunc("GET /subscriptions/{id}", MetricsMiddleware(s.subscriptionsHandler.HandleGet, "subscription"))
	mux.HandleFunc("DELETE /subscriptions/{id}", MetricsMiddleware(s.subscriptionsHandler.HandleDelete, "subscription"))

	mux.HandleFunc("POST /notify", MetricsMiddleware(s.eventsHandler.HandleNotify, "notify"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvents, "events"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorBody(status, code, err))
}

func errorBody(status int, code string, err error) types.ErrorResponse {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	return types.ErrorResponse{Code: code, Message: msg}
}

// writeDomainError maps a domain or adapter error onto a status code.
func writeDomainError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(ctx, log, err)
	writeError(w, status, code, err)
}

// classify picks the status and error code for err, logging server-side
// failures.
func classify(ctx context.Context, log logger.Logger, err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), model.IsValidation(err):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrClosed), model.IsUnavailable(err):
		log.Warn(ctx, "dependency unavailable", logger.Error(err))
		return http.StatusServiceUnavailable, "unavailable"
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		return http.StatusInternalServerError, "internal"
	}
}
