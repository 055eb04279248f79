package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llmwatch/llmwatch/internal/pkg/logger"
)

// Event types pushed to stream subscribers
const (
	TypeAnomaly  = "anomaly"
	TypePattern  = "pattern"
	TypeIncident = "incident"
	TypeMetrics  = "metrics"
)

// Event is one message pushed to all stream subscribers.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber receives encoded events until Close is called. A slow
// subscriber that fills its buffer drops events rather than blocking
// the publisher.
type Subscriber struct {
	ID        string
	Ch        chan []byte
	Done      chan struct{}
	closeOnce sync.Once
}

// Close signals the subscriber's stream loop to exit.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.Done) })
}

// Hub fans events out to live event-stream connections.
type Hub struct {
	subscribers map[string]*Subscriber
	register    chan *Subscriber
	unregister  chan *Subscriber
	broadcast   chan Event
	logger      *logger.Logger
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub(log *logger.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]*Subscriber),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan Event, 64),
		logger:      log,
	}
	go h.run()
	return h
}

// Subscribe registers a new stream consumer.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:   uuid.New().String(),
		Ch:   make(chan []byte, 256),
		Done: make(chan struct{}),
	}
	h.register <- sub
	return sub
}

// Unsubscribe removes a stream consumer.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.unregister <- sub
}

// Publish broadcasts an event to all subscribers. Never blocks the
// caller; if the hub's queue is full the event is dropped.
func (h *Hub) Publish(eventType string, data interface{}) {
	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Event hub queue full, dropping event")
	}
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub.ID] = sub
			h.logger.WithFields(map[string]interface{}{
				"subscriber_id": sub.ID,
				"subscribers":   len(h.subscribers),
			}).Debug("Event subscriber registered")

		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub.ID]; ok {
				delete(h.subscribers, sub.ID)
				sub.Close()
			}

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.ErrorWithErr(err, "Failed to encode event")
				continue
			}
			for _, sub := range h.subscribers {
				select {
				case sub.Ch <- data:
				default:
					// Subscriber is not draining; drop for this one.
				}
			}
		}
	}
}
