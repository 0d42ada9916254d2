package central

import (
	"context"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

// WriteMode selects the acknowledgement behavior of a channel write.
type WriteMode uint8

const (
	// WriteWithResponse requests a write acknowledgement.
	WriteWithResponse WriteMode = iota

	// WriteWithoutResponse writes without acknowledgement.
	WriteWithoutResponse
)

// PriorityHint is the connection-priority level requested from the
// transport once per established connection.
type PriorityHint uint8

const (
	// PriorityBalanced is the default connection priority.
	PriorityBalanced PriorityHint = iota

	// PriorityHigh requests a low-latency connection.
	PriorityHigh
)

// Update is one data-channel update delivered by the transport.
// Err is non-nil when the delivery carried an error status; such
// updates are discarded without decoding.
type Update struct {
	Channel gatt.ChannelID
	Data    []byte
	Err     error
}

// LinkHandler receives asynchronous link events for one connection
// instance. Implementations must not block; events are queued into the
// owning identity's sequential event loop.
type LinkHandler interface {
	// HandleUpdate delivers a data-channel update.
	HandleUpdate(up Update)

	// HandleDisconnect reports loss of the link.
	HandleDisconnect(reason error)
}

// Conn is one established connection instance to a device.
type Conn interface {
	// Identity returns the stable device identity.
	Identity() string

	// Capabilities returns the capabilities discovered on the device,
	// restricted to registry-known ones.
	Capabilities() []gatt.CapabilityID

	// Read reads the current value of a channel.
	Read(ctx context.Context, ch gatt.ChannelID) ([]byte, error)

	// Write writes a value to a channel.
	Write(ctx context.Context, ch gatt.ChannelID, data []byte, mode WriteMode) error

	// Subscribe enables or disables value notifications for a channel.
	// Notifications arrive through the connection's LinkHandler.
	Subscribe(ch gatt.ChannelID, enable bool) error

	// SupportsWrite reports whether the device-side channel accepts writes.
	SupportsWrite(ch gatt.ChannelID) bool

	// RequestPriorityHint asks the transport for a connection priority.
	RequestPriorityHint(level PriorityHint) error

	// Disconnect tears the link down deliberately.
	Disconnect() error
}

// Transport establishes connections to devices. Completion of all
// channel operations is reported synchronously as an error value; value
// updates and link loss arrive asynchronously via the LinkHandler.
type Transport interface {
	Connect(ctx context.Context, identity string, h LinkHandler) (Conn, error)
}

// Candidate is a discovered device offering at least one wanted capability.
type Candidate struct {
	// Identity is the stable device identity (address).
	Identity string

	// Name is the advertised device name.
	Name string
}

// DiscoveryHandler receives discovery events.
type DiscoveryHandler interface {
	// HandleCandidate reports a discovered candidate device.
	HandleCandidate(c Candidate)

	// HandleAdapterState reports the radio adapter becoming available
	// or unavailable.
	HandleAdapterState(available bool)
}

// Discovery scans for devices advertising wanted capabilities.
type Discovery interface {
	// Start begins discovery restricted to devices advertising at
	// least one of the given capabilities.
	Start(filter []gatt.CapabilityID, h DiscoveryHandler) error

	// Stop ends discovery.
	Stop() error
}
