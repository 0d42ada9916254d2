package ble

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"tinygo.org/x/bluetooth"

	"github.com/vitalink-protocol/vitalink-go/pkg/central"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

// readBufferSize bounds a single characteristic read.
const readBufferSize = 512

// Conn is one established BLE connection implementing central.Conn.
// Channel operations resolve through the characteristics discovered at
// connect time.
type Conn struct {
	identity string
	device   bluetooth.Device
	handler  central.LinkHandler
	logger   *slog.Logger

	caps  []gatt.CapabilityID
	chars map[gatt.ChannelID]*bluetooth.DeviceCharacteristic

	mu      sync.Mutex
	closed  bool
	onClose func()
}

// newConn discovers the registry-known services and characteristics on
// a freshly connected device.
func newConn(identity string, device bluetooth.Device, h central.LinkHandler, logger *slog.Logger) (*Conn, error) {
	c := &Conn{
		identity: identity,
		device:   device,
		handler:  h,
		logger:   logger,
		chars:    make(map[gatt.ChannelID]*bluetooth.DeviceCharacteristic),
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "discover-services", "device", identity),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot discover device services"),
		)
	}

	for i := range services {
		uuid := services[i].UUID()
		if !uuid.Is16Bit() {
			continue
		}
		capability, ok := gatt.Lookup(gatt.CapabilityID(uuid.Get16Bit()))
		if !ok {
			continue
		}

		chars, err := services[i].DiscoverCharacteristics(nil)
		if err != nil {
			logger.Warn("characteristic discovery failed",
				"device", identity, "capability", capability.ID, "error", err)
			continue
		}

		c.caps = append(c.caps, capability.ID)
		for j := range chars {
			charUUID := chars[j].UUID()
			if !charUUID.Is16Bit() {
				continue
			}
			id := gatt.ChannelID(charUUID.Get16Bit())
			if _, _, known := gatt.LookupChannel(id); known {
				c.chars[id] = &chars[j]
			}
		}
	}

	return c, nil
}

// Identity implements central.Conn.
func (c *Conn) Identity() string {
	return c.identity
}

// Capabilities implements central.Conn.
func (c *Conn) Capabilities() []gatt.CapabilityID {
	return c.caps
}

// Read implements central.Conn.
func (c *Conn) Read(ctx context.Context, ch gatt.ChannelID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	char, err := c.characteristic(ch)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, readBufferSize)
	n, err := char.Read(buf)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "read", "device", c.identity, "channel", ch.String()),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot read channel value"),
		)
	}
	return buf[:n], nil
}

// Write implements central.Conn. The platform stack only performs
// unacknowledged writes, so both modes map to write-without-response.
func (c *Conn) Write(ctx context.Context, ch gatt.ChannelID, data []byte, _ central.WriteMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	char, err := c.characteristic(ch)
	if err != nil {
		return err
	}

	if _, err := char.WriteWithoutResponse(data); err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "write", "device", c.identity, "channel", ch.String()),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot write channel value"),
		)
	}
	return nil
}

// Subscribe implements central.Conn. Notifications are forwarded to the
// connection's LinkHandler.
func (c *Conn) Subscribe(ch gatt.ChannelID, enable bool) error {
	char, err := c.characteristic(ch)
	if err != nil {
		return err
	}

	var callback func([]byte)
	if enable {
		callback = func(buf []byte) {
			data := make([]byte, len(buf))
			copy(data, buf)
			c.handler.HandleUpdate(central.Update{Channel: ch, Data: data})
		}
	}

	if err := char.EnableNotifications(callback); err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "subscribe", "device", c.identity, "channel", ch.String()),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot change channel subscription"),
		)
	}
	return nil
}

// SupportsWrite implements central.Conn. The platform API does not
// expose characteristic properties, so writability follows the registry.
func (c *Conn) SupportsWrite(ch gatt.ChannelID) bool {
	if _, known := c.chars[ch]; !known {
		return false
	}
	entry, _, ok := gatt.LookupChannel(ch)
	return ok && entry.Access.CanWrite()
}

// RequestPriorityHint implements central.Conn. The platform stack
// negotiates connection parameters on its own; the hint is accepted and
// ignored.
func (c *Conn) RequestPriorityHint(central.PriorityHint) error {
	return nil
}

// Disconnect implements central.Conn.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}

	if err := c.device.Disconnect(); err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "disconnect", "device", c.identity),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot disconnect device"),
		)
	}
	return nil
}

// linkLost reports an unsolicited link loss to the core. Called from
// the adapter's connect handler.
func (c *Conn) linkLost() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	c.handler.HandleDisconnect(fault.New("link lost", ftag.With(ftag.Internal)))
}

func (c *Conn) characteristic(ch gatt.ChannelID) (*bluetooth.DeviceCharacteristic, error) {
	char, ok := c.chars[ch]
	if !ok {
		return nil, fault.New("channel not present on device",
			fctx.With(context.Background(), "device", c.identity, "channel", ch.String()),
			ftag.With(ftag.NotFound),
			fmsg.With("Device does not expose this channel"),
		)
	}
	return char, nil
}

var (
	_ central.Conn      = (*Conn)(nil)
	_ central.Transport = (*Adapter)(nil)
	_ central.Discovery = (*Adapter)(nil)
)
