package services

import (
	"sync"
)

// Event types pushed over the stream.
const (
	EventNotification = "notification"
	EventMessage      = "message"
	EventUnreadCount  = "unread_count"
)

// Event is a real-time update for one user.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	userID uint
	ch     chan Event
}

// EventHub fans events out to the stream connections of each user.
type EventHub struct {
	clients map[string]subscriber
	mu      sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]subscriber),
	}
}

// Subscribe registers a connection for userID and returns its event channel.
func (h *EventHub) Subscribe(clientID string, userID uint) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 100)
	h.clients[clientID] = subscriber{userID: userID, ch: ch}
	return ch
}

func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.clients[clientID]; ok {
		close(sub.ch)
		delete(h.clients, clientID)
	}
}

// Publish sends event to every connection of userID. Full buffers drop the
// event.
func (h *EventHub) Publish(userID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connected reports whether userID has at least one open stream.
func (h *EventHub) Connected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.clients {
		if sub.userID == userID {
			return true
		}
	}
	return false
}

var (
	globalEventHub *EventHub
	eventHubOnce   sync.Once
)

// GetEventHub returns the process-wide hub.
func GetEventHub() *EventHub {
	eventHubOnce.Do(func() {
		globalEventHub = NewEventHub()
	})
	return globalEventHub
}
