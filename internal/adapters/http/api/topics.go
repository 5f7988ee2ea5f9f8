package api

import (
	"net/http"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/types"
	"github.com/okian/tweetcast/pkg/logger"
)

// TopicsHandler handles topic registry requests.
type TopicsHandler struct {
	topics TopicService
	log    logger.Logger
}

// NewTopicsHandler creates a new topics handler.
func NewTopicsHandler(topics TopicService, log logger.Logger) *TopicsHandler {
	return &TopicsHandler{topics: topics, log: log}
}

// HandleCreate handles POST /topics. Repeated names return the stored topic.
func (h *TopicsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req types.TopicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	topic, err := h.topics.CreateTopic(r.Context(), req.Name)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// HandleList handles GET /topics.
func (h *TopicsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	out := types.TopicList{Topics: []model.Topic{}}
	for topic, err := range h.topics.ListTopics(r.Context()) {
		if err != nil {
			writeDomainError(r.Context(), h.log, w, err)
			return
		}
		out.Topics = append(out.Topics, topic)
	}
	writeJSON(w, http.StatusOK, out)
}
