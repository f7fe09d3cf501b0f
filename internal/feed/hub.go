package feed

import (
	"context"
	"sync"
)

// Hub is an in-process feed. Publish delivers synchronously, in the
// publisher's goroutine, to every matching subscription.
type Hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[topic]map[uint64]Handler
}

type topic struct {
	resource string
	scope    string
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[topic]map[uint64]Handler)}
}

// Subscribe implements Subscriber.
func (h *Hub) Subscribe(_ context.Context, resource, scope string, onEvent Handler) (Unsubscribe, error) {
	key := topic{resource: resource, scope: scope}

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]Handler)
	}
	h.subs[key][id] = onEvent
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
		})
	}, nil
}

// Publish implements Publisher.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[topic{ev.Table, ev.Scope}]))
	for _, fn := range h.subs[topic{ev.Table, ev.Scope}] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return nil
}

// Subscribers returns the number of live subscriptions to resource in scope.
func (h *Hub) Subscribers(resource, scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic{resource, scope}])
}
