package central

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

func newTestScanController(d *fakeDiscovery, a Adopter) *ScanController {
	return NewScanController(d, a, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitAdopted(t *testing.T, a *fakeAdopter) {
	t.Helper()
	select {
	case <-a.notify:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for adoption")
	}
}

func TestScanBeginUsesRegistryFilterByDefault(t *testing.T) {
	discovery := &fakeDiscovery{}
	sc := newTestScanController(discovery, newFakeAdopter(nil))

	require.NoError(t, sc.Begin(nil))
	assert.Equal(t, gatt.CapabilityIDs(), discovery.filter)
	assert.True(t, discovery.isRunning())
	assert.Equal(t, "ACTIVE", sc.State())
}

func TestScanBeginTwice(t *testing.T) {
	discovery := &fakeDiscovery{}
	sc := newTestScanController(discovery, newFakeAdopter(nil))

	require.NoError(t, sc.Begin(nil))
	assert.ErrorIs(t, sc.Begin(nil), ErrScanActive)
}

func TestScanStopWithoutBegin(t *testing.T) {
	sc := newTestScanController(&fakeDiscovery{}, newFakeAdopter(nil))
	assert.ErrorIs(t, sc.Stop(), ErrScanInactive)
}

func TestScanFirstCandidateStopsDiscoveryAndAdopts(t *testing.T) {
	discovery := &fakeDiscovery{}
	adopter := newFakeAdopter(nil)
	sc := newTestScanController(discovery, adopter)

	require.NoError(t, sc.Begin([]gatt.CapabilityID{gatt.CapBloodPressure}))

	sc.HandleCandidate(Candidate{Identity: "AA:BB", Name: "Acme BP Monitor"})
	assert.False(t, discovery.isRunning(), "discovery stops before connecting")

	// A second candidate while the attempt is in flight is ignored.
	sc.HandleCandidate(Candidate{Identity: "CC:DD", Name: "Other"})

	waitAdopted(t, adopter)
	assert.Eventually(t, func() bool { return sc.State() == "IDLE" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, adopter.count())
}

func TestScanResumesAfterFailedAdoption(t *testing.T) {
	discovery := &fakeDiscovery{}
	adopter := newFakeAdopter(errors.New("connection refused"))
	sc := newTestScanController(discovery, adopter)

	require.NoError(t, sc.Begin([]gatt.CapabilityID{gatt.CapBloodPressure}))
	sc.HandleCandidate(Candidate{Identity: "AA:BB", Name: "Acme BP Monitor"})

	waitAdopted(t, adopter)

	assert.Eventually(t, func() bool {
		return discovery.isRunning() && sc.State() == "ACTIVE"
	}, time.Second, 5*time.Millisecond, "discovery resumes with the same filter")
	assert.Equal(t, []gatt.CapabilityID{gatt.CapBloodPressure}, discovery.filter)
	assert.Equal(t, 2, discovery.startCount())
}

func TestScanAdapterLossAndRecovery(t *testing.T) {
	discovery := &fakeDiscovery{}
	sc := newTestScanController(discovery, newFakeAdopter(nil))

	require.NoError(t, sc.Begin([]gatt.CapabilityID{gatt.CapHeartRate}))

	sc.HandleAdapterState(false)
	assert.Equal(t, "SUSPENDED", sc.State())

	// Candidates reported while suspended are ignored.
	sc.HandleCandidate(Candidate{Identity: "AA:BB"})

	sc.HandleAdapterState(true)
	assert.Equal(t, "ACTIVE", sc.State())
	assert.Equal(t, []gatt.CapabilityID{gatt.CapHeartRate}, discovery.filter)
	assert.Equal(t, 2, discovery.startCount())
}

func TestScanAdapterRecoveryWhileIdle(t *testing.T) {
	discovery := &fakeDiscovery{}
	sc := newTestScanController(discovery, newFakeAdopter(nil))

	sc.HandleAdapterState(true)
	assert.Equal(t, "IDLE", sc.State())
	assert.Zero(t, discovery.startCount(), "idle controller does not restart discovery")
}

func TestScanStopDuringAdoption(t *testing.T) {
	discovery := &fakeDiscovery{}
	adopter := newFakeAdopter(errors.New("connection refused"))
	sc := newTestScanController(discovery, adopter)

	require.NoError(t, sc.Begin(nil))
	sc.HandleCandidate(Candidate{Identity: "AA:BB"})
	require.NoError(t, sc.Stop())

	waitAdopted(t, adopter)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "IDLE", sc.State(), "stop during adoption wins over the failure resume")
	assert.False(t, discovery.isRunning())
}
