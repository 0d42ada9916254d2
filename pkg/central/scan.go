package central

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vitalink-protocol/vitalink-go/pkg/connection"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// Scan controller errors.
var (
	ErrScanActive   = errors.New("discovery already active")
	ErrScanInactive = errors.New("discovery not active")
)

// Adopter takes ownership of a discovered candidate. Implemented by
// Service.
type Adopter interface {
	Adopt(ctx context.Context, c Candidate) error
}

// scanState is the controller's lifecycle state.
type scanState uint8

const (
	scanIdle scanState = iota

	// scanActive means discovery is running on the radio.
	scanActive

	// scanAdopting means discovery is stopped while a candidate
	// connection is pursued. At most one attempt runs at a time.
	scanAdopting

	// scanSuspended means discovery should be running but the adapter
	// is unavailable. It restarts when the adapter returns.
	scanSuspended
)

func (s scanState) String() string {
	switch s {
	case scanIdle:
		return "IDLE"
	case scanActive:
		return "ACTIVE"
	case scanAdopting:
		return "ADOPTING"
	case scanSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// ScanController governs acquisition of new devices: it runs capability
// filtered discovery, pursues the first candidate found, and hands the
// established device over to the adopter. It never reconnects known
// identities; link loss recovery bypasses it entirely.
type ScanController struct {
	discovery Discovery
	adopter   Adopter
	plog      log.Logger
	logger    *slog.Logger

	mu     sync.Mutex
	state  scanState
	filter []gatt.CapabilityID
}

// NewScanController creates a scan controller over a discovery
// collaborator and an adopter.
func NewScanController(discovery Discovery, adopter Adopter, plog log.Logger, logger *slog.Logger) *ScanController {
	if plog == nil {
		plog = log.NoopLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanController{
		discovery: discovery,
		adopter:   adopter,
		plog:      plog,
		logger:    logger,
	}
}

// Begin starts discovery restricted to devices advertising at least one
// of the given capabilities. An empty filter means all registry
// capabilities.
func (c *ScanController) Begin(filter []gatt.CapabilityID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != scanIdle {
		return ErrScanActive
	}
	if len(filter) == 0 {
		filter = gatt.CapabilityIDs()
	}
	c.filter = filter

	if err := c.discovery.Start(filter, c); err != nil {
		return err
	}
	c.setStateLocked(scanActive, "begin")
	return nil
}

// Stop ends discovery and returns the controller to idle. A connection
// attempt already in flight is not interrupted.
func (c *ScanController) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == scanIdle {
		return ErrScanInactive
	}

	prev := c.state
	c.setStateLocked(scanIdle, "stop")
	if prev == scanActive {
		return c.discovery.Stop()
	}
	return nil
}

// State returns the current controller state name.
func (c *ScanController) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

// HandleCandidate implements DiscoveryHandler. The first candidate stops
// discovery and starts a connection attempt; candidates reported while
// an attempt is in flight are ignored.
func (c *ScanController) HandleCandidate(cand Candidate) {
	c.mu.Lock()
	if c.state != scanActive {
		c.mu.Unlock()
		return
	}
	if err := c.discovery.Stop(); err != nil {
		c.logger.Warn("stopping discovery failed", "error", err)
	}
	c.setStateLocked(scanAdopting, "candidate "+cand.Identity)
	c.mu.Unlock()

	c.logger.Info("candidate found",
		"device", cand.Identity, "name", cand.Name)

	go c.adopt(cand)
}

// adopt pursues the candidate connection. On failure discovery resumes
// with the same filter; on success the controller goes idle and the
// adopter owns the device from here on.
func (c *ScanController) adopt(cand Candidate) {
	ctx, cancel := context.WithTimeout(context.Background(), connection.ConnectTimeout)
	err := c.adopter.Adopt(ctx, cand)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != scanAdopting {
		// Stopped or suspended while connecting.
		return
	}

	if err != nil {
		c.logger.Warn("candidate connection failed, resuming discovery",
			"device", cand.Identity, "error", err)
		if startErr := c.discovery.Start(c.filter, c); startErr != nil {
			c.logger.Error("resuming discovery failed", "error", startErr)
			c.setStateLocked(scanIdle, "resume failed")
			return
		}
		c.setStateLocked(scanActive, "resume after failed adoption")
		return
	}

	c.setStateLocked(scanIdle, "adopted "+cand.Identity)
}

// HandleAdapterState implements DiscoveryHandler. Losing the adapter
// suspends discovery; its return restarts discovery with the same
// filter.
func (c *ScanController) HandleAdapterState(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !available {
		if c.state == scanActive || c.state == scanAdopting {
			c.setStateLocked(scanSuspended, "adapter unavailable")
		}
		return
	}

	if c.state != scanSuspended {
		return
	}
	if err := c.discovery.Start(c.filter, c); err != nil {
		c.logger.Error("restarting discovery failed", "error", err)
		c.setStateLocked(scanIdle, "restart failed")
		return
	}
	c.setStateLocked(scanActive, "adapter available")
}

// setStateLocked transitions state and records it. Caller holds mu.
func (c *ScanController) setStateLocked(next scanState, reason string) {
	prev := c.state
	c.state = next
	c.plog.Log(stateEvent(nil, log.StateEntityScan, prev.String(), next.String(), reason))
}

var _ DiscoveryHandler = (*ScanController)(nil)
