package api

import (
	"net/http"

	"github.com/okian/pulselog/internal/domain/catalog"
	"github.com/okian/pulselog/internal/domain/pace"
)

// eventResponse is one catalog entry with its input hint.
type eventResponse struct {
	catalog.Event
	Placeholder string `json:"placeholder"`
	PaceModel   bool   `json:"pace_model"`
}

// EventsHandler serves the event catalog.
type EventsHandler struct {
	events []eventResponse
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler() *EventsHandler {
	all := catalog.All()
	events := make([]eventResponse, 0, len(all))
	for _, e := range all {
		events = append(events, eventResponse{
			Event:       e,
			Placeholder: catalog.Placeholder(e),
			PaceModel:   pace.Supported(e.Value),
		})
	}
	return &EventsHandler{events: events}
}

// HandleListEvents handles GET /v1/events.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.events)
}
