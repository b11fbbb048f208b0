package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives the full inbound frame
type Handler func(Frame)

// Registration identifies one listener for later removal
type Registration struct {
	event string
	id    uint64
}

type listenerEntry struct {
	id uint64
	fn Handler
}

// Router maintains per-event-type listener lists and dispatches inbound
// frames to them in registration order.
type Router struct {
	logger *zap.Logger

	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]listenerEntry
}

// NewRouter creates a new event router
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		logger:    logger.Named("realtime.router"),
		listeners: make(map[string][]listenerEntry),
	}
}

// AddListener registers a handler for the given event type and returns a
// registration handle for removal.
func (r *Router) AddListener(event string, fn Handler) Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.listeners[event] = append(r.listeners[event], listenerEntry{id: r.nextID, fn: fn})
	return Registration{event: event, id: r.nextID}
}

// RemoveListener removes a previously registered handler. Removing an
// unknown or already-removed registration is a no-op.
func (r *Router) RemoveListener(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.listeners[reg.event]
	for i, e := range entries {
		if e.id == reg.id {
			r.listeners[reg.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Dispatch invokes every listener registered for the frame's type, in
// registration order. Types with no listeners are ignored.
func (r *Router) Dispatch(f Frame) {
	r.mu.RLock()
	entries := r.listeners[f.Type]
	snapshot := make([]listenerEntry, len(entries))
	copy(snapshot, entries)
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		r.logger.Debug("no listeners for event", zap.String("event", f.Type))
		return
	}
	for _, e := range snapshot {
		e.fn(f)
	}
}
