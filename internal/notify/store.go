package notify

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxItems bounds the notification list when no capacity is configured
const DefaultMaxItems = 100

// ChangeHandler receives the full current list, newest first
type ChangeHandler func([]Notification)

type changeEntry struct {
	key string
	fn  ChangeHandler
}

// Store is the bounded, most-recent-first notification list with
// read-state and change broadcast.
type Store struct {
	logger *zap.Logger
	max    int

	mu        sync.Mutex
	items     []Notification
	listeners []changeEntry
}

// NewStore creates a notification store bounded to max items
func NewStore(logger *zap.Logger, max int) *Store {
	if max <= 0 {
		max = DefaultMaxItems
	}
	return &Store{
		logger: logger.Named("notify.store"),
		max:    max,
	}
}

// Add prepends the notification, evicting the oldest entries beyond
// capacity, and broadcasts the new list to every change listener.
func (s *Store) Add(n Notification) {
	s.mu.Lock()
	s.items = append([]Notification{n}, s.items...)
	if len(s.items) > s.max {
		s.items = s.items[:s.max]
	}
	s.mu.Unlock()

	s.logger.Debug("notification added", zap.String("id", n.ID), zap.String("event", n.EventType))
	s.broadcast()
}

// List returns a copy of the current list, newest first
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Unread returns the number of unread notifications
func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks the matching entry as read. Unknown ids are a no-op, not
// an error; the call is idempotent.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID == id {
			changed = !s.items[i].Read
			s.items[i].Read = true
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.broadcast()
	}
}

// MarkAllRead marks every entry as read
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.broadcast()
	}
}

// OnChange registers a change listener. Registering the same key twice is
// a no-op.
func (s *Store) OnChange(key string, fn ChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.listeners {
		if e.key == key {
			return
		}
	}
	s.listeners = append(s.listeners, changeEntry{key: key, fn: fn})
}

// RemoveChangeListener removes a change listener by key. Unknown keys are
// a no-op.
func (s *Store) RemoveChangeListener(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.listeners {
		if e.key == key {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) broadcast() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	listeners := make([]changeEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, e := range listeners {
		e.fn(snapshot)
	}
}

func (s *Store) snapshotLocked() []Notification {
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}
