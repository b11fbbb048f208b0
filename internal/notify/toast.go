package notify

import (
	"sync"

	"go.uber.org/zap"
)

// ToastHandler receives a toast-eligible notification
type ToastHandler func(Notification)

type toastEntry struct {
	key string
	fn  ToastHandler
}

// Dispatcher delivers toast-eligible notifications to every registered
// observer exactly once per notification, synchronously and in
// registration order.
type Dispatcher struct {
	logger *zap.Logger

	mu        sync.Mutex
	observers []toastEntry
}

// NewDispatcher creates a toast dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.Named("notify.toast"),
	}
}

// Register adds an observer. Registering an already-present key is a
// no-op, so a re-mounting component cannot double-subscribe itself.
func (d *Dispatcher) Register(key string, fn ToastHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.observers {
		if e.key == key {
			return
		}
	}
	d.observers = append(d.observers, toastEntry{key: key, fn: fn})
}

// Unregister removes an observer by key. Unknown keys are a no-op.
func (d *Dispatcher) Unregister(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.observers {
		if e.key == key {
			d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

// Dispatch delivers the notification to every observer in registration
// order. A panicking observer does not prevent delivery to the rest.
func (d *Dispatcher) Dispatch(n Notification) {
	d.mu.Lock()
	observers := make([]toastEntry, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, e := range observers {
		d.deliver(e, n)
	}
}

func (d *Dispatcher) deliver(e toastEntry, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("toast observer panicked",
				zap.String("observer", e.key),
				zap.String("notification", n.ID),
				zap.Any("panic", r))
		}
	}()
	e.fn(n)
}
