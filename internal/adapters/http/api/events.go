package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/types"
	"github.com/okian/tweetcast/pkg/logger"
)

// EventsHandler handles classified event batches.
type EventsHandler struct {
	events EventService
	log    logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(events EventService, log logger.Logger) *EventsHandler {
	return &EventsHandler{events: events, log: log}
}

func (h *EventsHandler) readEvents(w http.ResponseWriter, r *http.Request) ([]model.ClassifiedEvent, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return model.DecodeEvents(body)
}

// HandleNotify handles POST /notify: the batch is archived and fanned out
// before the response is written.
func (h *EventsHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	events, err := h.readEvents(w, r)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	report, err := h.events.ProcessBatch(r.Context(), model.Batch{Events: events})
	if err != nil {
		status, code := classify(r.Context(), h.log, err)
		body := errorBody(status, code, err)
		if report.BatchID != "" {
			partial := types.NewNotifyResponse(report)
			body.Report = &partial
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, types.NewNotifyResponse(report))
}

// HandlePostEvents handles POST /events: the batch is queued for the worker
// pool and acknowledged with 202.
func (h *EventsHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.readEvents(w, r)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	res, err := h.events.Enqueue(r.Context(), events)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.NewIngestResponse(res))
}
