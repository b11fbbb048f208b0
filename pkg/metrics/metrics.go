package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/surveydesk/surveydesk/internal/common/config"
)

// Metrics tracks realtime channel and notification activity
type Metrics struct {
	registry *prometheus.Registry

	connState     prometheus.Gauge
	reconnects    prometheus.Counter
	drops         prometheus.Counter
	framesTotal   *prometheus.CounterVec
	malformed     prometheus.Counter
	notifications prometheus.Counter
	toasts        prometheus.Counter
}

// New creates a metrics registry with realtime channel collectors
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	connState := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "connection_state", Help: "Current connection state (0=disconnected 1=connecting 2=open 3=reconnecting 4=failed)"})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "reconnect_attempts_total"})
	drops := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "connection_drops_total"})
	framesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "frames_received_total"}, []string{"event"})
	malformed := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "malformed_frames_total"})
	notifications := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "notifications_total"})
	toasts := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "toasts_delivered_total"})
	r.MustRegister(connState, reconnects, drops, framesTotal, malformed, notifications, toasts)

	return &Metrics{
		registry:      r,
		connState:     connState,
		reconnects:    reconnects,
		drops:         drops,
		framesTotal:   framesTotal,
		malformed:     malformed,
		notifications: notifications,
		toasts:        toasts,
	}
}

func (m *Metrics) SetConnectionState(state int) {
	m.connState.Set(float64(state))
}

func (m *Metrics) ReconnectScheduled() {
	m.reconnects.Inc()
}

func (m *Metrics) ConnectionDropped() {
	m.drops.Inc()
}

func (m *Metrics) FrameReceived(event string) {
	m.framesTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) MalformedFrame() {
	m.malformed.Inc()
}

func (m *Metrics) NotificationAdded() {
	m.notifications.Inc()
}

func (m *Metrics) ToastDelivered() {
	m.toasts.Inc()
}

// Handler returns an HTTP handler serving the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
