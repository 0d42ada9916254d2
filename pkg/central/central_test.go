package central

import (
	"context"
	"sync"

	"github.com/vitalink-protocol/vitalink-go/pkg/event"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

// Test fakes shared across the package tests.

type writeCall struct {
	Channel gatt.ChannelID
	Data    []byte
	Mode    WriteMode
}

type fakeConn struct {
	mu sync.Mutex

	identity string
	caps     []gatt.CapabilityID

	readData map[gatt.ChannelID][]byte
	readErr  map[gatt.ChannelID]error
	subErr   map[gatt.ChannelID]error
	writeErr map[gatt.ChannelID]error

	// noWrite marks channels whose device-side instance rejects writes
	// even though the registry allows them.
	noWrite map[gatt.ChannelID]bool

	writes       []writeCall
	subs         []gatt.ChannelID
	hints        []PriorityHint
	disconnected bool
}

func newFakeConn(identity string, caps ...gatt.CapabilityID) *fakeConn {
	return &fakeConn{
		identity: identity,
		caps:     caps,
		readData: make(map[gatt.ChannelID][]byte),
		readErr:  make(map[gatt.ChannelID]error),
		subErr:   make(map[gatt.ChannelID]error),
		writeErr: make(map[gatt.ChannelID]error),
		noWrite:  make(map[gatt.ChannelID]bool),
	}
}

func (c *fakeConn) Identity() string { return c.identity }

func (c *fakeConn) Capabilities() []gatt.CapabilityID { return c.caps }

func (c *fakeConn) Read(_ context.Context, ch gatt.ChannelID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readErr[ch]; err != nil {
		return nil, err
	}
	return c.readData[ch], nil
}

func (c *fakeConn) Write(_ context.Context, ch gatt.ChannelID, data []byte, mode WriteMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeErr[ch]; err != nil {
		return err
	}
	c.writes = append(c.writes, writeCall{Channel: ch, Data: data, Mode: mode})
	return nil
}

func (c *fakeConn) Subscribe(ch gatt.ChannelID, enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.subErr[ch]; err != nil {
		return err
	}
	if enable {
		c.subs = append(c.subs, ch)
	}
	return nil
}

func (c *fakeConn) SupportsWrite(ch gatt.ChannelID) bool {
	entry, _, ok := gatt.LookupChannel(ch)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return entry.Access.CanWrite() && !c.noWrite[ch]
}

func (c *fakeConn) RequestPriorityHint(level PriorityHint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hints = append(c.hints, level)
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeConn) writeCalls() []writeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]writeCall, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) subscribed() []gatt.ChannelID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gatt.ChannelID, len(c.subs))
	copy(out, c.subs)
	return out
}

// fakeTransport hands out one fakeConn per Connect call and remembers
// the handler so tests can inject link events.
type fakeTransport struct {
	mu sync.Mutex

	connectErr error
	caps       []gatt.CapabilityID

	conns    []*fakeConn
	handlers []LinkHandler
}

func (t *fakeTransport) Connect(_ context.Context, identity string, h LinkHandler) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	conn := newFakeConn(identity, t.caps...)
	t.conns = append(t.conns, conn)
	t.handlers = append(t.handlers, h)
	return conn, nil
}

func (t *fakeTransport) lastHandler() LinkHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.handlers) == 0 {
		return nil
	}
	return t.handlers[len(t.handlers)-1]
}

func (t *fakeTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// capturePub records published domain events.
type capturePub struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Type event.Type
	Data any
}

func (p *capturePub) Publish(t event.Type, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Type: t, Data: data})
}

func (p *capturePub) all() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// fakeDiscovery drives the scan controller from tests.
type fakeDiscovery struct {
	mu sync.Mutex

	startErr error

	running bool
	starts  int
	stops   int
	filter  []gatt.CapabilityID
	handler DiscoveryHandler
}

func (d *fakeDiscovery) Start(filter []gatt.CapabilityID, h DiscoveryHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.running = true
	d.starts++
	d.filter = filter
	d.handler = h
	return nil
}

func (d *fakeDiscovery) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.stops++
	return nil
}

func (d *fakeDiscovery) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *fakeDiscovery) startCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// fakeAdopter records adoptions and optionally fails them.
type fakeAdopter struct {
	mu sync.Mutex

	err     error
	adopted []Candidate
	notify  chan struct{}
}

func newFakeAdopter(err error) *fakeAdopter {
	return &fakeAdopter{err: err, notify: make(chan struct{}, 8)}
}

func (a *fakeAdopter) Adopt(_ context.Context, c Candidate) error {
	a.mu.Lock()
	a.adopted = append(a.adopted, c)
	err := a.err
	a.mu.Unlock()
	a.notify <- struct{}{}
	return err
}

func (a *fakeAdopter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.adopted)
}
