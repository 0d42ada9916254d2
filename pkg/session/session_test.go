package session

import (
	"sync"
	"testing"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

func TestSessionReset(t *testing.T) {
	s := New("AA:BB:CC:DD:EE:FF", "TMB-1583")

	gen1 := s.Reset()
	if gen1 != 1 {
		t.Errorf("expected generation 1, got %d", gen1)
	}
	connID1 := s.ConnID()
	if connID1 == "" {
		t.Fatal("expected a connection ID after reset")
	}

	s.AddCapability(gatt.CapBloodPressure)
	s.AddSubscription(gatt.ChanBloodPressureMeasurement)
	s.IncClockSyncAttempts()
	s.IncClockSyncAttempts()

	if s.ClockSyncAttempts() != 2 {
		t.Errorf("expected 2 attempts, got %d", s.ClockSyncAttempts())
	}

	gen2 := s.Reset()
	if gen2 != gen1+1 {
		t.Errorf("expected generation %d, got %d", gen1+1, gen2)
	}
	if s.ConnID() == connID1 {
		t.Error("expected a fresh connection ID after reset")
	}
	if s.ClockSyncAttempts() != 0 {
		t.Errorf("clock-sync attempts should reset to 0, got %d", s.ClockSyncAttempts())
	}
	if s.HasCapability(gatt.CapBloodPressure) {
		t.Error("capabilities should be cleared on reset")
	}
	if s.IsSubscribed(gatt.ChanBloodPressureMeasurement) {
		t.Error("subscriptions should be cleared on reset")
	}
}

func TestSessionIdentification(t *testing.T) {
	s := New("AA:BB:CC:DD:EE:FF", "BPM")

	s.SetIdentification("Transtek", "")
	s.SetIdentification("", "TMB-1583-B")

	manufacturer, model := s.Identification()
	if manufacturer != "Transtek" {
		t.Errorf("expected manufacturer Transtek, got %q", manufacturer)
	}
	if model != "TMB-1583-B" {
		t.Errorf("expected model TMB-1583-B, got %q", model)
	}
}

func TestSessionSubscriptions(t *testing.T) {
	s := New("11:22:33:44:55:66", "Thermo")
	s.Reset()

	s.AddSubscription(gatt.ChanTemperatureMeasurement)
	s.AddSubscription(gatt.ChanBatteryLevel)

	subs := s.Subscriptions()
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}
	if !s.IsSubscribed(gatt.ChanBatteryLevel) {
		t.Error("battery subscription should be active")
	}
	if s.IsSubscribed(gatt.ChanHeartRateMeasurement) {
		t.Error("heart rate subscription should not be active")
	}
}

func TestStoreOneSessionPerIdentity(t *testing.T) {
	st := NewStore()

	s1, loaded := st.GetOrCreate("AA:BB:CC:DD:EE:FF", "BPM")
	if loaded {
		t.Error("first GetOrCreate should create")
	}
	s2, loaded := st.GetOrCreate("AA:BB:CC:DD:EE:FF", "other name")
	if !loaded {
		t.Error("second GetOrCreate should load the existing session")
	}
	if s1 != s2 {
		t.Error("expected the same session instance per identity")
	}
	if st.Count() != 1 {
		t.Errorf("expected 1 session, got %d", st.Count())
	}

	st.Delete("AA:BB:CC:DD:EE:FF")
	if _, ok := st.Get("AA:BB:CC:DD:EE:FF"); ok {
		t.Error("expected session to be deleted")
	}
}

func TestStoreConcurrentGetOrCreate(t *testing.T) {
	st := NewStore()

	const n = 32
	sessions := make([]*Session, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := st.GetOrCreate("AA:BB:CC:DD:EE:FF", "BPM")
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent GetOrCreate returned different sessions")
		}
	}
	if st.Count() != 1 {
		t.Errorf("expected 1 session, got %d", st.Count())
	}
}
