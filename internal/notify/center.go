package notify

import (
	"github.com/surveydesk/surveydesk/internal/realtime"
	"github.com/surveydesk/surveydesk/pkg/metrics"
	"go.uber.org/zap"
)

// Center turns inbound frames into notifications: every mapped frame is
// stored, toast-eligible ones are additionally fanned out to the toast
// dispatcher.
type Center struct {
	logger  *zap.Logger
	store   *Store
	toasts  *Dispatcher
	metrics *metrics.Metrics

	regs []realtime.Registration
}

// NewCenter creates a notification center over the given store and
// dispatcher. A nil metrics registry disables instrumentation.
func NewCenter(logger *zap.Logger, store *Store, toasts *Dispatcher, mx *metrics.Metrics) *Center {
	return &Center{
		logger:  logger.Named("notify.center"),
		store:   store,
		toasts:  toasts,
		metrics: mx,
	}
}

// Attach subscribes the center to every catalog event on the router
func (c *Center) Attach(r *realtime.Router) {
	for _, event := range realtime.Catalog() {
		c.regs = append(c.regs, r.AddListener(event, c.HandleFrame))
	}
}

// Detach removes the center's router subscriptions
func (c *Center) Detach(r *realtime.Router) {
	for _, reg := range c.regs {
		r.RemoveListener(reg)
	}
	c.regs = nil
}

// HandleFrame maps one frame and feeds the store and toast dispatcher
func (c *Center) HandleFrame(f realtime.Frame) {
	n := Map(f)
	if n == nil {
		c.logger.Debug("no notification mapping for event", zap.String("event", f.Type))
		return
	}

	c.store.Add(*n)
	if c.metrics != nil {
		c.metrics.NotificationAdded()
	}

	if n.Toast {
		c.toasts.Dispatch(*n)
		if c.metrics != nil {
			c.metrics.ToastDelivered()
		}
	}
}

// Store returns the underlying notification store
func (c *Center) Store() *Store {
	return c.store
}

// Toasts returns the underlying toast dispatcher
func (c *Center) Toasts() *Dispatcher {
	return c.toasts
}
