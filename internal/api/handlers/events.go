package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
)

// EventsHandler streams detection events over SSE
type EventsHandler struct {
	hub    *events.Hub
	logger *logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *events.Hub, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: log,
	}
}

// Stream handles a Server-Sent Events subscription
// @Summary Stream detection events
// @Description Subscribe to anomaly, pattern and incident events as a Server-Sent Events stream
// @Tags Events
// @Produce text/event-stream
// @Success 200 {string} string "Event stream"
// @Security ApiKeyAuth
// @Router /events [get]
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	h.logger.WithFields(map[string]interface{}{
		"subscriber_id": sub.ID,
	}).Debug("Event stream opened")

	// Initial hello so clients can confirm the stream is live
	hello := events.Event{
		Type:      "connected",
		Data:      map[string]string{"subscriberId": sub.ID},
		Timestamp: time.Now().UTC(),
	}
	if data, err := json.Marshal(hello); err == nil {
		w.Write([]byte("data: " + string(data) + "\n\n"))
		flusher.Flush()
	}

	// Periodic comments keep intermediaries from closing an idle stream
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case message, ok := <-sub.Ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + string(message) + "\n\n"))
			flusher.Flush()
		case <-keepalive.C:
			w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case <-sub.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
