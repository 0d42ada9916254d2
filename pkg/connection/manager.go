package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrManagerClosed    = errors.New("connection manager closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection and no pending attempt.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnectPending indicates a reconnection attempt is scheduled.
	StateReconnectPending

	// StateClosed indicates the connection manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnectPending:
		return "RECONNECT_PENDING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc is called to establish a connection to the manager's device.
// It should return nil on success or an error on failure.
type ConnectFunc func(ctx context.Context) error

// Manager manages the connection lifecycle for one device identity.
// Link loss schedules a reconnection attempt against the same identity
// after a fixed delay, indefinitely; deliberate disconnects cancel any
// pending attempt.
type Manager struct {
	mu sync.RWMutex

	// Device identity this manager reconnects.
	identity string

	// Current state
	state State

	// Delay calculator
	delay *Delay

	// Connection function
	connectFn ConnectFunc

	// Auto-reconnect enabled
	autoReconnect bool

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for reconnection goroutine
	wg sync.WaitGroup

	// Channel to signal reconnection should start.
	// Capacity 1: at most one pending attempt per identity.
	reconnectCh chan struct{}

	// Callbacks
	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a connection manager for a device identity.
func NewManager(identity string, connectFn ConnectFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		identity:      identity,
		state:         StateDisconnected,
		delay:         NewFixedDelay(),
		connectFn:     connectFn,
		autoReconnect: true,
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}
}

// Identity returns the device identity this manager serves.
func (m *Manager) Identity() string {
	return m.identity
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// SetDelay replaces the delay calculator. Must be called before any
// reconnection is triggered.
func (m *Manager) SetDelay(d *Delay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Connect initiates a connection.
// Returns ErrAlreadyConnected if already connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateConnecting)

	err := m.connectFn(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyStateChange(StateConnecting, StateDisconnected)
		return err
	}

	m.state = StateConnected
	m.delay.Reset()
	m.mu.Unlock()

	m.notifyStateChange(StateConnecting, StateConnected)
	if m.onConnected != nil {
		m.onConnected()
	}

	return nil
}

// Disconnect records a deliberate disconnect. No reconnection is
// scheduled and any pending attempt is abandoned.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state != StateConnected && m.state != StateReconnectPending {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateDisconnected

	// Drain a pending reconnect trigger, if any.
	select {
	case <-m.reconnectCh:
	default:
	}
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateDisconnected)
	if oldState == StateConnected && m.onDisconnected != nil {
		m.onDisconnected()
	}
}

// NotifyConnectionLost should be called when link loss is detected.
// This schedules a reconnection attempt if auto-reconnect is enabled.
func (m *Manager) NotifyConnectionLost() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	autoReconnect := m.autoReconnect

	if autoReconnect {
		m.state = StateReconnectPending
	} else {
		m.state = StateDisconnected
	}
	newState := m.state
	m.mu.Unlock()

	m.notifyStateChange(oldState, newState)
	if m.onDisconnected != nil {
		m.onDisconnected()
	}

	if autoReconnect {
		m.triggerReconnect()
	}
}

// StartReconnectLoop starts the background reconnection loop.
// Must be called once before reconnection will work.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close shuts down the connection manager and cancels any pending
// reconnection attempt.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateClosed)

	m.cancel()
	m.wg.Wait()
}

// Attempts returns the number of reconnection delays issued since the
// last successful connection.
func (m *Manager) Attempts() int {
	return m.delay.Attempts()
}

// notifyStateChange invokes the state-change callback if set.
func (m *Manager) notifyStateChange(oldState, newState State) {
	if m.onStateChange != nil {
		m.onStateChange(oldState, newState)
	}
}

// triggerReconnect signals that reconnection should be attempted.
func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

// reconnectLoop runs in a goroutine and handles reconnection attempts.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// attemptReconnect retries the connection until it succeeds, the manager
// is closed, or a deliberate disconnect intervenes.
func (m *Manager) attemptReconnect() {
	for {
		m.mu.RLock()
		state := m.state
		m.mu.RUnlock()

		if state != StateReconnectPending {
			return
		}

		delay := m.delay.Next()
		attempts := m.delay.Attempts()

		if m.onReconnecting != nil {
			m.onReconnecting(attempts, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		if m.state != StateReconnectPending {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.mu.Unlock()
		m.notifyStateChange(StateReconnectPending, StateConnecting)

		ctx, cancel := context.WithTimeout(m.ctx, ConnectTimeout)
		err := m.connectFn(ctx)
		cancel()

		m.mu.Lock()
		if m.state != StateConnecting {
			// Closed or deliberately disconnected during the attempt.
			m.mu.Unlock()
			return
		}

		if err == nil {
			m.state = StateConnected
			m.delay.Reset()
			m.mu.Unlock()

			m.notifyStateChange(StateConnecting, StateConnected)
			if m.onConnected != nil {
				m.onConnected()
			}
			return
		}

		m.state = StateReconnectPending
		m.mu.Unlock()
		m.notifyStateChange(StateConnecting, StateReconnectPending)
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for disconnection.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback for reconnection attempts.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}
