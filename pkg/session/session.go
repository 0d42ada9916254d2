// Package session tracks the mutable per-device state the orchestration
// core maintains across one connected lifetime.
//
// A Session is created the first time a device identity connects and
// survives reconnects; session-scoped fields (discovered capabilities,
// active subscriptions, the clock-sync attempt counter) are reset on
// every fresh connection. Exactly one live session exists per identity.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

// Session is the mutable state for one device identity.
// All methods are safe for concurrent use, although the orchestration
// core mutates a session from a single goroutine per identity.
type Session struct {
	mu sync.RWMutex

	identity string
	name     string

	// connID identifies the current connection instance (UUID).
	// Refreshed by Reset on every new connection.
	connID string

	// generation increments on every Reset. Events queued under an older
	// generation are discarded by the dispatcher.
	generation uint64

	capabilities  map[gatt.CapabilityID]struct{}
	subscriptions map[gatt.ChannelID]struct{}

	clockSyncAttempts int

	manufacturer string
	model        string
}

// New creates a session for a device identity with its advertised name.
// The session starts at generation zero; call Reset when the first
// connection is established.
func New(identity, name string) *Session {
	return &Session{
		identity:      identity,
		name:          name,
		capabilities:  make(map[gatt.CapabilityID]struct{}),
		subscriptions: make(map[gatt.ChannelID]struct{}),
	}
}

// Identity returns the stable device identity.
func (s *Session) Identity() string {
	return s.identity
}

// Name returns the advertised device name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName updates the advertised device name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// ConnID returns the identifier of the current connection instance.
func (s *Session) ConnID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connID
}

// Generation returns the current connection generation.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Reset prepares the session for a newly established connection:
// capability and subscription sets empty, clock-sync counter zero, a
// fresh connection ID, and the next generation. Returns the new
// generation value.
func (s *Session) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.capabilities = make(map[gatt.CapabilityID]struct{})
	s.subscriptions = make(map[gatt.ChannelID]struct{})
	s.clockSyncAttempts = 0
	s.connID = uuid.NewString()
	s.generation++

	return s.generation
}

// AddCapability records a capability discovered on the device.
func (s *Session) AddCapability(id gatt.CapabilityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilities[id] = struct{}{}
}

// HasCapability reports whether the capability was discovered in the
// current connection.
func (s *Session) HasCapability(id gatt.CapabilityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.capabilities[id]
	return ok
}

// AddSubscription records an activated channel subscription.
func (s *Session) AddSubscription(id gatt.ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[id] = struct{}{}
}

// IsSubscribed reports whether the channel subscription is active.
func (s *Session) IsSubscribed(id gatt.ChannelID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscriptions[id]
	return ok
}

// Subscriptions returns the active channel subscriptions.
func (s *Session) Subscriptions() []gatt.ChannelID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]gatt.ChannelID, 0, len(s.subscriptions))
	for id := range s.subscriptions {
		out = append(out, id)
	}
	return out
}

// IncClockSyncAttempts increments the clock-sync attempt counter and
// returns the new value.
func (s *Session) IncClockSyncAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clockSyncAttempts++
	return s.clockSyncAttempts
}

// ClockSyncAttempts returns the clock-sync attempt counter.
func (s *Session) ClockSyncAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clockSyncAttempts
}

// SetIdentification stores the static identification fields read during
// session initialization.
func (s *Session) SetIdentification(manufacturer, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if manufacturer != "" {
		s.manufacturer = manufacturer
	}
	if model != "" {
		s.model = model
	}
}

// Identification returns the manufacturer and model strings, if read.
func (s *Session) Identification() (manufacturer, model string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manufacturer, s.model
}
