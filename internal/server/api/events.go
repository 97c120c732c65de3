package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/proxiwatch/internal/store"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 1000

// EventHandler serves the trigger event journal read-only.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// ServeHTTP routes /api/events and /api/events/{id}.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/events")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}
	h.get(w, path)
}

type eventResponse struct {
	ID          string `json:"id"`
	FiredAt     string `json:"fired_at"`
	PersonCount int    `json:"person_count"`
	CloseCount  int    `json:"close_count"`
	Plugin      string `json:"plugin,omitempty"`
	Action      string `json:"action,omitempty"`
	Error       string `json:"error,omitempty"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
	Total  int             `json:"total"`
}

func toEventResponse(e *store.TriggerEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		FiredAt:     e.FiredAt.Format(time.RFC3339Nano),
		PersonCount: e.PersonCount,
		CloseCount:  e.CloseCount,
		Plugin:      e.Plugin,
		Action:      e.Action,
		Error:       e.Error,
	}
}

// list handles GET /api/events[?limit=N], newest first.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > MaxListLimit {
			n = MaxListLimit
		}
		limit = n
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	total, err := h.store.Events().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
		Total:  total,
	}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/events/{id}.
func (h *EventHandler) get(w http.ResponseWriter, id string) {
	e, err := h.store.Events().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(e))
}
