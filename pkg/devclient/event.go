package devclient

import (
	"context"
	"sync"
	"time"
)

// EventType classifies node events.
type EventType uint8

const (
	EventNodeAdded EventType = iota + 1
	EventNodeUpdated
	EventNodeRemoved
	EventAttributeUpdated
	EventNodeEvent
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventNodeAdded:
		return "node_added"
	case EventNodeUpdated:
		return "node_updated"
	case EventNodeRemoved:
		return "node_removed"
	case EventAttributeUpdated:
		return "attribute_updated"
	case EventNodeEvent:
		return "node_event"
	default:
		return "unknown"
	}
}

// Event is a change notification from the controller.
type Event struct {
	Type      EventType `json:"type"`
	Node      NodeID    `json:"node_id"`
	Endpoint  uint16    `json:"endpoint_id,omitempty"`
	Cluster   uint32    `json:"cluster_id,omitempty"`
	Attribute uint32    `json:"attribute_id,omitempty"`
	EventID   uint32    `json:"event_id,omitempty"`
	Value     any       `json:"data,omitempty"`
	Time      time.Time `json:"time"`
}

// EventHandler receives events. Handlers must not block.
type EventHandler func(Event)

// Subscription is a registration for events. Close is idempotent.
type Subscription struct {
	once   sync.Once
	done   chan struct{}
	cancel func()
}

// NewSubscription creates a subscription that calls cancel once on Close.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Close ends the subscription. Further calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		close(s.done)
	})
	return nil
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Hub fans events out to subscribers. The zero value is ready to use.
type Hub struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]EventHandler
}

// Subscribe registers handler. The subscription is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, handler EventHandler) *Subscription {
	h.mu.Lock()
	if h.handlers == nil {
		h.handlers = make(map[uint64]EventHandler)
	}
	h.nextID++
	id := h.nextID
	h.handlers[id] = handler
	h.mu.Unlock()

	sub := NewSubscription(func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	})

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.Done():
		}
	}()
	return sub
}

// Publish delivers ev to every current subscriber.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.mu.RLock()
	handlers := make([]EventHandler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
