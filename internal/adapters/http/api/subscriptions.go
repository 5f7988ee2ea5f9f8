package api

import (
	"net/http"
	"strings"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/internal/domain/types"
	"github.com/okian/tweetcast/pkg/logger"
)

// teapotType is accepted by the client boundary and always refused.
const teapotType = "coffee"

// SubscriptionsHandler handles subscription requests.
type SubscriptionsHandler struct {
	subs SubscriptionService
	log  logger.Logger
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(subs SubscriptionService, log logger.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{subs: subs, log: log}
}

// HandleCreate handles POST /subscriptions.
func (h *SubscriptionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req types.SubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	if strings.EqualFold(strings.TrimSpace(req.Type), teapotType) {
		writeError(w, http.StatusTeapot, "teapot", ErrTeapot)
		return
	}

	sub, err := h.subs.CreateSubscription(r.Context(), subscriptions.CreateRequest{
		Type:   req.Type,
		Topics: req.Topics,
		Target: req.Target(),
	})
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SubscriptionCreated{
		Message:        "Created a subscription",
		SubscriptionID: sub.ID,
		Type:           sub.Type,
	})
}

// HandleList handles GET /subscriptions with an optional topic filter.
func (h *SubscriptionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	out := types.SubscriptionList{Subscriptions: []model.Subscription{}}
	for sub, err := range h.subs.ListSubscriptions(r.Context(), r.URL.Query().Get("topic")) {
		if err != nil {
			writeDomainError(r.Context(), h.log, w, err)
			return
		}
		out.Subscriptions = append(out.Subscriptions, sub)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /subscriptions/{id}.
func (h *SubscriptionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.GetSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleDelete handles DELETE /subscriptions/{id}. Unknown ids also yield 204.
func (h *SubscriptionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.subs.DeleteSubscription(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
