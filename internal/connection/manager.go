// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package connection

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

// Config configures a Manager. Hooks are optional and are never called
// with the manager's lock held.
type Config struct {
	URL               string
	Reconnect         bool
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ReconnectAttempts int
	DialTimeout       time.Duration

	// OnConnect fires once per established connection.
	OnConnect func()
	// OnDisconnect fires once when an established connection ends, with
	// the cause (nil for an explicit Disconnect).
	OnDisconnect func(err error)
	// OnError fires for dial failures and abnormal connection loss.
	OnError func(err error)
	// OnMessage fires for every valid row update before it is processed.
	OnMessage func(u models.RowUpdate)
	// OnStateChange fires on every state transition.
	OnStateChange func(state models.ConnectionState)
}

// DefaultConfig returns reconnecting defaults: 1s base delay doubling to
// 30s, 10 attempts.
func DefaultConfig() Config {
	return Config{
		Reconnect:         true,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReconnectAttempts: 10,
		DialTimeout:       10 * time.Second,
	}
}

// UpdateProcessor consumes validated row updates.
type UpdateProcessor interface {
	ProcessUpdate(u models.RowUpdate) engine.ProcessResult
}

// Option configures a Manager.
type Option func(*Manager)

// WithAfterFunc replaces the timer used for reconnect delays.
func WithAfterFunc(f AfterFunc) Option {
	return func(m *Manager) { m.afterFunc = f }
}

// WithClock sets the time source used to stamp updates without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the upstream connection.
type Manager struct {
	cfg          Config
	transport    Transport
	processor    UpdateProcessor
	afterFunc    AfterFunc
	now          func() time.Time
	log          zerolog.Logger
	malformedLog zerolog.Logger

	mu            sync.Mutex
	state         models.ConnectionState
	attempts      int
	gen           uint64
	conn          Conn
	timer         Timer
	cancelDial    context.CancelFunc
	interest      map[string]struct{}
	sessionID     string
	everConnected bool

	current   atomic.Uint64 // mirrors gen for the read path
	received  atomic.Uint64
	malformed atomic.Uint64
}

// NewManager creates a disconnected manager. processor may be nil.
//
//nolint:gocritic // Config carries hook funcs and is copied once
func NewManager(cfg Config, transport Transport, processor UpdateProcessor, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.ReconnectAttempts < 0 {
		cfg.ReconnectAttempts = 0
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}

	m := &Manager{
		cfg:          cfg,
		transport:    transport,
		processor:    processor,
		afterFunc:    realAfterFunc,
		now:          time.Now,
		log:          logging.WithComponent("connection"),
		malformedLog: logging.Sampled("connection", 5, time.Second),
		state:        models.StateDisconnected,
		interest:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.ConnectionState.Set(float64(models.StateDisconnected))
	return m
}

// hooks collects callbacks to run after the lock is released.
type hooks []func()

func (h *hooks) add(f func()) { *h = append(*h, f) }

func (h hooks) run() {
	for _, f := range h {
		f()
	}
}

// Connect starts connecting. It is a no-op while connecting or connected.
// From reconnecting or failed it cancels any pending retry, resets the
// attempt counter and dials immediately.
func (m *Manager) Connect() {
	var h hooks
	m.mu.Lock()
	if m.state == models.StateConnecting || m.state == models.StateConnected {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.attempts = 0
	m.dialLocked(&h)
	m.mu.Unlock()
	h.run()
}

// Disconnect closes the connection and cancels pending reconnects. No
// automatic retry follows.
func (m *Manager) Disconnect() {
	var h hooks
	m.mu.Lock()
	wasConnected := m.state == models.StateConnected
	m.bumpGenLocked()
	m.stopTimerLocked()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	conn := m.conn
	m.conn = nil
	m.attempts = 0
	m.setStateLocked(models.StateDisconnected, &h)
	if wasConnected && m.cfg.OnDisconnect != nil {
		onDisconnect := m.cfg.OnDisconnect
		h.add(func() { onDisconnect(nil) })
	}
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug().Err(err).Msg("close after disconnect")
		}
	}
	h.run()
}

// dialLocked queues a dial attempt. The dial goroutine starts after the
// queued state hooks so observers see connecting before connected.
func (m *Manager) dialLocked(h *hooks) {
	gen := m.bumpGenLocked()
	m.setStateLocked(models.StateConnecting, h)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	m.cancelDial = cancel
	url := m.cfg.URL
	h.add(func() { go m.dial(ctx, cancel, gen, url) })
}

func (m *Manager) dial(ctx context.Context, cancel context.CancelFunc, gen uint64, url string) {
	conn, err := m.transport.Dial(ctx, url)
	cancel()

	var h hooks
	m.mu.Lock()
	if gen != m.gen {
		// Disconnected or superseded while dialing.
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close() //nolint:errcheck
		}
		return
	}
	m.cancelDial = nil

	if err != nil {
		metrics.ConnectionErrors.WithLabelValues("dial").Inc()
		m.log.Warn().Err(err).Str("url", url).Int("attempt", m.attempts).Msg("dial failed")
		if m.cfg.OnError != nil {
			onError := m.cfg.OnError
			h.add(func() { onError(err) })
		}
		m.retryOrGiveUpLocked(&h)
		m.mu.Unlock()
		h.run()
		return
	}

	m.conn = conn
	m.attempts = 0
	m.sessionID = uuid.New().String()
	reconnected := m.everConnected
	m.everConnected = true
	symbols := m.interestLocked()
	m.setStateLocked(models.StateConnected, &h)
	sessionID := m.sessionID
	m.mu.Unlock()

	ctxLog := logging.Ctx(logging.ContextWithSessionID(context.Background(), sessionID))
	ctxLog.Info().Str("url", url).Bool("reconnect", reconnected).Int("symbols", len(symbols)).Msg("transport connected")

	if len(symbols) > 0 {
		if err := conn.SetInterest(true, symbols); err != nil {
			m.log.Warn().Err(err).Msg("resending interest set failed")
		}
	}
	if m.cfg.OnConnect != nil {
		h.add(m.cfg.OnConnect)
	}
	h.run()

	go m.readLoop(conn, gen)
}

// retryOrGiveUpLocked schedules the next reconnect or moves to the
// terminal state.
func (m *Manager) retryOrGiveUpLocked(h *hooks) {
	if m.cfg.Reconnect && m.attempts < m.cfg.ReconnectAttempts {
		delay := BackoffDelay(m.attempts, m.cfg.ReconnectDelay, m.cfg.MaxReconnectDelay)
		m.attempts++
		m.setStateLocked(models.StateReconnecting, h)
		gen := m.gen
		m.timer = m.afterFunc(delay, func() { m.retry(gen) })
		metrics.ConnectionReconnects.Inc()
		m.log.Info().Dur("delay", delay).Int("attempt", m.attempts).Msg("reconnect scheduled")
		return
	}

	if m.cfg.Reconnect {
		m.log.Error().Int("attempts", m.attempts).Msg("reconnect attempts exhausted")
		m.setStateLocked(models.StateFailed, h)
		return
	}
	m.setStateLocked(models.StateDisconnected, h)
}

func (m *Manager) retry(gen uint64) {
	var h hooks
	m.mu.Lock()
	if gen != m.gen || m.state != models.StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.dialLocked(&h)
	m.mu.Unlock()
	h.run()
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.connectionLost(conn, gen, err)
			return
		}
		if m.current.Load() != gen {
			return
		}
		m.handleMessage(data)
	}
}

func (m *Manager) handleMessage(data []byte) {
	m.received.Add(1)
	metrics.ConnectionMessagesReceived.Inc()

	u, err := ParseMessage(data, m.now())
	if err != nil {
		if errors.Is(err, ErrIgnoredMessage) {
			return
		}
		m.malformed.Add(1)
		metrics.ConnectionMessagesMalformed.Inc()
		m.malformedLog.Warn().Err(err).Int("bytes", len(data)).Msg("malformed message dropped")
		return
	}

	if m.cfg.OnMessage != nil {
		m.cfg.OnMessage(u)
	}
	if m.processor != nil {
		m.processor.ProcessUpdate(u)
	}
}

func (m *Manager) connectionLost(conn Conn, gen uint64, cause error) {
	_ = conn.Close() //nolint:errcheck

	var h hooks
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.bumpGenLocked()

	normal := websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if normal {
		m.log.Info().Msg("transport closed by peer")
	} else {
		m.log.Warn().Err(cause).Msg("transport lost")
		if m.cfg.OnError != nil {
			onError := m.cfg.OnError
			h.add(func() { onError(cause) })
		}
	}
	if m.cfg.OnDisconnect != nil {
		onDisconnect := m.cfg.OnDisconnect
		h.add(func() { onDisconnect(cause) })
	}
	m.retryOrGiveUpLocked(&h)
	m.mu.Unlock()
	h.run()
}

// Subscribe adds symbols to the interest set. While connected the producer
// is told immediately; otherwise the set is sent on the next connect.
func (m *Manager) Subscribe(symbols []string) error {
	return m.changeInterest(true, symbols)
}

// Unsubscribe removes symbols from the interest set.
func (m *Manager) Unsubscribe(symbols []string) error {
	return m.changeInterest(false, symbols)
}

func (m *Manager) changeInterest(subscribe bool, symbols []string) error {
	m.mu.Lock()
	var changed []string
	for _, s := range symbols {
		_, have := m.interest[s]
		switch {
		case subscribe && !have:
			m.interest[s] = struct{}{}
			changed = append(changed, s)
		case !subscribe && have:
			delete(m.interest, s)
			changed = append(changed, s)
		}
	}
	var conn Conn
	if m.state == models.StateConnected {
		conn = m.conn
	}
	m.mu.Unlock()

	if conn == nil || len(changed) == 0 {
		return nil
	}
	return conn.SetInterest(subscribe, changed)
}

// Symbols returns the interest set, sorted.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interestLocked()
}

func (m *Manager) interestLocked() []string {
	out := make([]string, 0, len(m.interest))
	for s := range m.interest {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// State returns the current connection state.
func (m *Manager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot for the API.
func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.ConnectionStatus{
		State:             m.state,
		URL:               m.cfg.URL,
		ReconnectAttempts: m.attempts,
		MessagesReceived:  m.received.Load(),
		MalformedMessages: m.malformed.Load(),
		Symbols:           m.interestLocked(),
		SessionID:         m.sessionID,
	}
}

// Serve connects and blocks until ctx is done, then disconnects. It lets
// the manager run as a supervised service.
func (m *Manager) Serve(ctx context.Context) error {
	m.Connect()
	<-ctx.Done()
	m.Disconnect()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (m *Manager) String() string {
	return "connection-manager"
}

func (m *Manager) bumpGenLocked() uint64 {
	m.gen++
	m.current.Store(m.gen)
	return m.gen
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) setStateLocked(s models.ConnectionState, h *hooks) {
	if m.state == s {
		return
	}
	m.state = s
	metrics.ConnectionState.Set(float64(s))
	if m.cfg.OnStateChange != nil {
		onState := m.cfg.OnStateChange
		h.add(func() { onState(s) })
	}
}
