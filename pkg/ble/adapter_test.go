package ble

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"

	"github.com/vitalink-protocol/vitalink-go/pkg/central"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// fakeRadio stands in for the platform radio entry points.
type fakeRadio struct {
	mu       sync.Mutex
	scans    int
	active   int
	overlap  bool
	scanErr  error
	enables  int
	enableOK int // Enable succeeds from this call count on

	stop chan struct{}
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{stop: make(chan struct{}, 1), enableOK: 1}
}

func (r *fakeRadio) scan(func(*bluetooth.Adapter, bluetooth.ScanResult)) error {
	r.mu.Lock()
	r.scans++
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	err := r.scanErr
	r.mu.Unlock()

	if err != nil {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
		return err
	}

	<-r.stop
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return nil
}

func (r *fakeRadio) stopScan() error {
	r.stop <- struct{}{}
	return nil
}

func (r *fakeRadio) enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enables++
	if r.enables < r.enableOK {
		return errors.New("adapter powered off")
	}
	return nil
}

func (r *fakeRadio) scanCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}

func (r *fakeRadio) overlapped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlap
}

type recordHandler struct {
	mu     sync.Mutex
	states []bool
}

func (h *recordHandler) HandleCandidate(central.Candidate) {}

func (h *recordHandler) HandleAdapterState(usable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, usable)
}

func (h *recordHandler) allStates() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.states...)
}

func newTestAdapter(r *fakeRadio) *Adapter {
	return &Adapter{
		plog:          log.NoopLogger{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		scanFn:        r.scan,
		stopScanFn:    r.stopScan,
		enableFn:      r.enable,
		retryInterval: time.Millisecond,
		addrs:         make(map[string]bluetooth.Address),
		conns:         make(map[string]*Conn),
	}
}

func TestAdapterRecoversAfterScanFailure(t *testing.T) {
	radio := newFakeRadio()
	radio.scanErr = errors.New("le-connection-abort-by-local")
	radio.enableOK = 3 // first two probes fail

	a := newTestAdapter(radio)
	h := &recordHandler{}

	require.NoError(t, a.Start(nil, h))

	assert.Eventually(t, func() bool {
		states := h.allStates()
		return len(states) == 2 && !states[0] && states[1]
	}, time.Second, time.Millisecond, "scan failure reports the adapter down, recovery reports it back up")

	// The discovery slot is free again once the failed scan has ended.
	radio.scanErr = nil
	require.NoError(t, a.Start(nil, h))
	require.NoError(t, a.Stop())
}

func TestAdapterRestartAfterStop(t *testing.T) {
	radio := newFakeRadio()
	a := newTestAdapter(radio)
	h := &recordHandler{}

	require.NoError(t, a.Start(nil, h))
	require.NoError(t, a.Stop())

	// A restart immediately after Stop must not be refused, even when
	// the previous radio scan has not wound down yet.
	require.NoError(t, a.Start(nil, h))

	assert.Eventually(t, func() bool {
		return radio.scanCount() == 2
	}, time.Second, time.Millisecond)
	assert.False(t, radio.overlapped(), "the new scan waits for the previous radio call to return")

	require.NoError(t, a.Stop())
	assert.Empty(t, h.allStates())
}