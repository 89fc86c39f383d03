package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
)

// allTypes is the subscription key for subscribers that receive every event.
const allTypes event.Type = "*"

const defaultBuffer = 64

// Hub fans domain events out to in-process subscribers without blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[event.Type]map[chan event.Event]struct{}
	buffer      int
	dropped     atomic.Int64
}

// NewHub creates a new Hub. buffer <= 0 uses the default channel size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subscribers: make(map[event.Type]map[chan event.Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber for the given types, or for every type when none
// is given, and returns the event channel and cleanup function.
func (h *Hub) Subscribe(types ...event.Type) (<-chan event.Event, func()) {
	if len(types) == 0 {
		types = []event.Type{allTypes}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan event.Event, h.buffer)
	for _, t := range types {
		if h.subscribers[t] == nil {
			h.subscribers[t] = make(map[chan event.Event]struct{})
		}
		h.subscribers[t][ch] = struct{}{}
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, t := range types {
				delete(h.subscribers[t], ch)
				if len(h.subscribers[t]) == 0 {
					delete(h.subscribers, t)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish delivers e to every matching subscriber. Full subscribers miss the event.
func (h *Hub) Publish(_ context.Context, e event.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[chan event.Event]struct{})
	for _, key := range []event.Type{e.EventType(), allTypes} {
		for ch := range h.subscribers[key] {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			select {
			case ch <- e:
			default:
				h.dropped.Add(1)
			}
		}
	}
	return nil
}

// SubscriberCount returns the number of subscribers registered for a type
func (h *Hub) SubscriberCount(t event.Type) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[t])
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
