package events

import "sync"

type Type string

const (
	TypeScheduledMessageSent Type = "scheduled-message-sent"
	TypeStatus               Type = "status"
)

// Event is what observers (the SSE stream, tests) receive.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// SendResult is the payload published once per processed scheduled
// message, success or failure.
type SendResult struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// StatusChange is published when the bridge's readiness flips.
type StatusChange struct {
	Ready bool `json:"ready"`
}

// Hub is a process-local broadcast of core events. Slow subscribers are
// skipped rather than blocking the dispatcher.
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

// Subscribe registers a buffered event channel under id. Subscribing the
// same id twice replaces (and closes) the previous channel.
func (h *Hub) Subscribe(id string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.subs[id]; ok {
		close(old)
	}
	ch := make(chan Event, 16)
	h.subs[id] = ch
	return ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// subscriber buffer full, drop for this subscriber
		}
	}
}
