package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventMessageNew = "message.new"

	defaultBuffer = 32
)

// Event is the envelope pushed to room subscribers.
type Event struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"ts"`
}

// Hub fans out room events to in-process subscribers. A subscriber that
// falls a full buffer behind is dropped and its channel closed.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*Subscription]struct{}
	buffer int
}

type Subscription struct {
	C <-chan []byte

	hub  *Hub
	room string
	send chan []byte
	once sync.Once
}

func NewHub() *Hub {
	return NewHubWithBuffer(defaultBuffer)
}

func NewHubWithBuffer(size int) *Hub {
	if size <= 0 {
		size = defaultBuffer
	}
	return &Hub{rooms: make(map[string]map[*Subscription]struct{}), buffer: size}
}

func (h *Hub) Subscribe(room string) *Subscription {
	send := make(chan []byte, h.buffer)
	s := &Subscription{C: send, hub: h, room: room, send: send}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[room] = subs
	}
	subs[s] = struct{}{}
	return s
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.remove(s)
}

// remove must be called with h.mu held.
func (h *Hub) remove(s *Subscription) {
	s.once.Do(func() {
		if subs, ok := h.rooms[s.room]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.rooms, s.room)
			}
		}
		close(s.send)
	})
}

// Publish never blocks on a subscriber.
func (h *Hub) Publish(room, eventType string, payload any) error {
	data, err := json.Marshal(Event{
		Type:      eventType,
		Room:      room,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.rooms[room] {
		select {
		case s.send <- data:
		default:
			h.remove(s)
		}
	}
	return nil
}

func (h *Hub) Subscribers(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
