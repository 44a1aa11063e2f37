package handlers

import (
	"net/http"
	"strconv"

	"github.com/bradleygolden/userapi/internal/services"
)

// EventHandler handles HTTP requests related to user activity events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	// Invalid limits fall back to the service default.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to retrieve events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
