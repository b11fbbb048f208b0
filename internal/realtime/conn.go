package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/surveydesk/surveydesk/internal/auth/token"
	"github.com/surveydesk/surveydesk/internal/common/config"
	"github.com/surveydesk/surveydesk/internal/common/errorx"
	"github.com/surveydesk/surveydesk/pkg/metrics"
	"go.uber.org/zap"
)

// State is the connection lifecycle state, owned exclusively by the Manager
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// StateHandler observes connection state transitions
type StateHandler func(State)

type stateEntry struct {
	key string
	fn  StateHandler
}

// Manager owns the persistent channel: open/close, bounded reconnection
// with a fixed interval, and resubscription of the full event catalog on
// every successful open. Inbound frames are read by a single goroutine and
// dispatched in arrival order.
type Manager struct {
	logger  *zap.Logger
	cfg     config.RealtimeConfig
	tokens  token.Store
	router  *Router
	dialer  Dialer
	metrics *metrics.Metrics

	mu       sync.Mutex
	state    State
	conn     Conn
	attempts int
	timer    *time.Timer
	gen      uint64

	stateMu        sync.Mutex
	stateListeners []stateEntry
}

// Option configures the Manager
type Option func(*Manager)

// WithDialer replaces the default websocket dialer
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithMetrics attaches a metrics registry
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// NewManager creates a new connection manager
func NewManager(logger *zap.Logger, cfg config.RealtimeConfig, tokens token.Store, router *Router, opts ...Option) *Manager {
	m := &Manager{
		logger: logger.Named("realtime.conn"),
		cfg:    cfg,
		tokens: tokens,
		router: router,
		dialer: NewWebsocketDialer(),
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers a state transition observer. Registering the
// same key twice is a no-op.
func (m *Manager) OnStateChange(key string, fn StateHandler) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	for _, e := range m.stateListeners {
		if e.key == key {
			return
		}
	}
	m.stateListeners = append(m.stateListeners, stateEntry{key: key, fn: fn})
}

// RemoveStateListener removes a state observer by key
func (m *Manager) RemoveStateListener(key string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	for i, e := range m.stateListeners {
		if e.key == key {
			m.stateListeners = append(m.stateListeners[:i:i], m.stateListeners[i+1:]...)
			return
		}
	}
}

// Connect opens the channel. It is idempotent: calls while connecting,
// open or awaiting a reconnect are no-ops. A non-empty access token is
// required; its absence is a caller error, not a retryable fault.
func (m *Manager) Connect() error {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateOpen, StateReconnecting:
		m.mu.Unlock()
		return nil
	}
	if m.tokens.Access() == "" {
		m.mu.Unlock()
		return errorx.NewValidationError("access token required to connect")
	}

	m.attempts = 0
	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	go m.dial(gen)
	return nil
}

// Disconnect closes the channel and cancels any pending reconnect timer.
// The state becomes Disconnected and stays there until an explicit Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	m.logger.Info("disconnected")
}

func (m *Manager) dial(gen uint64) {
	access := m.tokens.Access()
	if access == "" {
		// session went away between scheduling and dialing
		m.handleDrop(gen, errorx.NewValidationError("access token no longer available"))
		return
	}

	endpoint := fmt.Sprintf("%s/%s?token=%s",
		strings.TrimRight(m.cfg.URL, "/"),
		m.cfg.Namespace,
		url.QueryEscape(access))

	conn, err := m.dialer.Dial(context.Background(), endpoint)
	if err != nil {
		m.logger.Warn("dial failed", zap.Error(err))
		m.handleDrop(gen, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.attempts = 0
	m.setStateLocked(StateOpen)
	m.mu.Unlock()

	m.logger.Info("channel open", zap.String("namespace", m.cfg.Namespace))

	if err := m.subscribe(conn); err != nil {
		m.logger.Warn("subscription send failed", zap.Error(err))
		m.handleDrop(gen, err)
		return
	}

	go m.readLoop(gen, conn)
}

// subscribe re-sends the full fixed catalog, one request per event type
func (m *Manager) subscribe(conn Conn) error {
	for _, event := range Catalog() {
		if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Event: event}); err != nil {
			return err
		}
	}
	m.logger.Debug("subscriptions sent", zap.Int("events", len(catalog)))
	return nil
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleDrop(gen, err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			// malformed frames are dropped, the connection is unaffected
			m.logger.Warn("dropping malformed frame",
				zap.ByteString("data", data),
				zap.Error(err))
			if m.metrics != nil {
				m.metrics.MalformedFrame()
			}
			continue
		}

		if m.metrics != nil {
			m.metrics.FrameReceived(frame.Type)
		}
		m.router.Dispatch(frame)
	}
}

// handleDrop processes a connection loss for the given generation:
// schedules a reconnect until the attempt budget is spent, then goes
// terminal Failed.
func (m *Manager) handleDrop(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.state == StateDisconnected || m.state == StateFailed {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	if m.metrics != nil {
		m.metrics.ConnectionDropped()
	}

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.setStateLocked(StateFailed)
		m.mu.Unlock()
		m.logger.Error("giving up on reconnection",
			zap.Int("attempts", m.cfg.MaxReconnectAttempts),
			zap.Error(errorx.ErrConnectionExhausted))
		return
	}

	m.attempts++
	attempt := m.attempts
	m.setStateLocked(StateReconnecting)
	m.timer = time.AfterFunc(m.cfg.ReconnectInterval, func() { m.retry(gen) })
	if m.metrics != nil {
		m.metrics.ReconnectScheduled()
	}
	m.mu.Unlock()

	m.logger.Warn("connection dropped, reconnect scheduled",
		zap.Int("attempt", attempt),
		zap.Int("max", m.cfg.MaxReconnectAttempts),
		zap.Duration("in", m.cfg.ReconnectInterval),
		zap.Error(cause))
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.dial(gen)
}

// setStateLocked updates the state and notifies observers. Caller holds mu;
// observers are invoked asynchronously so they may call back into the
// manager.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.metrics != nil {
		m.metrics.SetConnectionState(int(s))
	}

	m.stateMu.Lock()
	listeners := make([]stateEntry, len(m.stateListeners))
	copy(listeners, m.stateListeners)
	m.stateMu.Unlock()

	for _, e := range listeners {
		go e.fn(s)
	}
}
