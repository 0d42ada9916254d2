package ble

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"tinygo.org/x/bluetooth"

	"github.com/vitalink-protocol/vitalink-go/pkg/central"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// adapterRetryInterval is how often a failed radio is re-probed after
// a scan dies underneath us.
const adapterRetryInterval = 5 * time.Second

// Adapter wraps the platform BLE adapter and implements the core's
// Transport and Discovery collaborators. A process uses one Adapter.
type Adapter struct {
	radio  *bluetooth.Adapter
	plog   log.Logger
	logger *slog.Logger

	// Radio entry points, swappable in tests.
	scanFn        func(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	stopScanFn    func() error
	enableFn      func() error
	retryInterval time.Duration

	mu       sync.Mutex
	scanning bool
	scanSeq  uint64

	// scanDone is closed when the current scan goroutine exits, so a
	// restart can wait for the radio to wind down first.
	scanDone chan struct{}

	// addrs caches the platform address of every device seen while
	// scanning, keyed by identity. Connect needs it because addresses
	// are not portably constructible from their string form.
	addrs map[string]bluetooth.Address

	// conns routes disconnect callbacks to the owning connection.
	conns map[string]*Conn
}

// NewAdapter enables the default platform adapter and returns it ready
// for discovery and connections.
func NewAdapter(plog log.Logger, logger *slog.Logger) (*Adapter, error) {
	if plog == nil {
		plog = log.NoopLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	radio := bluetooth.DefaultAdapter
	if err := radio.Enable(); err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "adapter-enable"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot enable the Bluetooth adapter"),
		)
	}

	a := &Adapter{
		radio:         radio,
		plog:          plog,
		logger:        logger,
		scanFn:        radio.Scan,
		stopScanFn:    radio.StopScan,
		enableFn:      radio.Enable,
		retryInterval: adapterRetryInterval,
		addrs:         make(map[string]bluetooth.Address),
		conns:         make(map[string]*Conn),
	}

	radio.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		a.mu.Lock()
		conn := a.conns[device.Address.String()]
		a.mu.Unlock()
		if conn != nil {
			conn.linkLost()
		}
	})

	return a, nil
}

// Start implements central.Discovery. Scanning runs on a background
// goroutine until Stop; each matching device is reported once per scan.
func (a *Adapter) Start(filter []gatt.CapabilityID, h central.DiscoveryHandler) error {
	a.mu.Lock()
	if a.scanning {
		a.mu.Unlock()
		return fault.New("discovery already running", ftag.With(ftag.Internal))
	}
	a.scanning = true
	a.scanSeq++
	seq := a.scanSeq
	prev := a.scanDone
	done := make(chan struct{})
	a.scanDone = done
	a.mu.Unlock()

	wanted := make([]bluetooth.UUID, len(filter))
	for i, id := range filter {
		wanted[i] = bluetooth.New16BitUUID(uint16(id))
	}

	go a.scan(seq, wanted, h, prev, done)
	return nil
}

func (a *Adapter) scan(seq uint64, wanted []bluetooth.UUID, h central.DiscoveryHandler, prev, done chan struct{}) {
	defer close(done)

	// The radio rejects overlapping scans; wait until the previous
	// scan call has returned before issuing a new one.
	if prev != nil {
		<-prev
	}

	seen := make(map[string]struct{})

	err := a.scanFn(func(radio *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !advertisesAny(result, wanted) {
			return
		}

		identity := result.Address.String()
		if _, dup := seen[identity]; dup {
			return
		}
		seen[identity] = struct{}{}

		a.mu.Lock()
		a.addrs[identity] = result.Address
		a.mu.Unlock()

		h.HandleCandidate(central.Candidate{
			Identity: identity,
			Name:     result.LocalName(),
		})
	})

	a.mu.Lock()
	current := a.scanSeq == seq
	if current {
		a.scanning = false
	}
	a.mu.Unlock()

	if err != nil && current {
		a.logger.Error("scan terminated", "error", err)
		h.HandleAdapterState(false)
		a.retryRadio(seq, h)
	}
}

// retryRadio probes the radio until it comes back, then reports it
// usable again. It gives up once a newer scan has been started.
func (a *Adapter) retryRadio(seq uint64, h central.DiscoveryHandler) {
	for {
		time.Sleep(a.retryInterval)

		a.mu.Lock()
		current := a.scanSeq == seq
		a.mu.Unlock()
		if !current {
			return
		}

		if err := a.enableFn(); err != nil {
			a.logger.Warn("adapter still unavailable", "error", err)
			continue
		}

		a.logger.Info("adapter recovered")
		h.HandleAdapterState(true)
		return
	}
}

// Stop implements central.Discovery. The discovery slot frees
// immediately; the radio winds down in the background.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	scanning := a.scanning
	a.mu.Unlock()
	if !scanning {
		return nil
	}

	if err := a.stopScanFn(); err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "stop-scan"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot stop scanning"),
		)
	}

	a.mu.Lock()
	a.scanning = false
	a.mu.Unlock()
	return nil
}

func advertisesAny(result bluetooth.ScanResult, wanted []bluetooth.UUID) bool {
	for _, u := range wanted {
		if result.HasServiceUUID(u) {
			return true
		}
	}
	return false
}

// Connect implements central.Transport. The identity must have been
// seen by a prior scan in this process.
func (a *Adapter) Connect(ctx context.Context, identity string, h central.LinkHandler) (central.Conn, error) {
	a.mu.Lock()
	addr, ok := a.addrs[identity]
	a.mu.Unlock()
	if !ok {
		return nil, fault.New("device address unknown",
			fctx.With(context.Background(), "device", identity),
			ftag.With(ftag.NotFound),
			fmsg.With("Device has not been discovered by this adapter"),
		)
	}

	params := bluetooth.ConnectionParams{}
	if deadline, ok := ctx.Deadline(); ok {
		params.ConnectionTimeout = bluetooth.NewDuration(time.Until(deadline))
	}

	device, err := a.radio.Connect(addr, params)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "connect", "device", identity),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot connect to device"),
		)
	}

	conn, err := newConn(identity, device, h, a.logger)
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}

	a.mu.Lock()
	a.conns[identity] = conn
	a.mu.Unlock()
	conn.onClose = func() {
		a.mu.Lock()
		delete(a.conns, identity)
		a.mu.Unlock()
	}

	return conn, nil
}
