package log

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

func notifyEvent(connID, device string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Layer:        LayerGatt,
		Category:     CategoryChannel,
		Device:       device,
		Channel: &ChannelEvent{
			Op:      ChannelOpNotify,
			Channel: gatt.ChanBloodPressureMeasurement,
			Size:    7,
		},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	want := notifyEvent("conn-1", "AA:BB:CC:DD:EE:FF")

	data, err := EncodeEvent(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.ConnectionID != want.ConnectionID {
		t.Errorf("connection ID mismatch: %q != %q", got.ConnectionID, want.ConnectionID)
	}
	if got.Device != want.Device {
		t.Errorf("device mismatch: %q != %q", got.Device, want.Device)
	}
	if got.Channel == nil {
		t.Fatal("expected channel payload")
	}
	if got.Channel.Op != ChannelOpNotify || got.Channel.Channel != gatt.ChanBloodPressureMeasurement {
		t.Errorf("channel payload mismatch: %+v", got.Channel)
	}
	if got.Timestamp.UnixNano() != want.Timestamp.UnixNano() {
		t.Errorf("timestamp precision lost: %v != %v", got.Timestamp, want.Timestamp)
	}
}

func TestEncodeDecodeObservation(t *testing.T) {
	want := Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-2",
		Direction:    DirectionIn,
		Layer:        LayerGatt,
		Category:     CategoryObservation,
		Observation: &ObservationEvent{
			Kind:    ObservationBatteryLevel,
			Channel: gatt.ChanBatteryLevel,
			Value:   50,
		},
	}

	data, err := EncodeEvent(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Observation == nil || got.Observation.Value != 50 {
		t.Errorf("observation mismatch: %+v", got.Observation)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vlog")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}

	fl.Log(notifyEvent("conn-a", "AA:BB:CC:DD:EE:FF"))
	fl.Log(notifyEvent("conn-b", "11:22:33:44:55:66"))
	fl.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-a",
		Direction:    DirectionOut,
		Layer:        LayerSession,
		Category:     CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerGatt,
			Message: "subscribe failed",
			Context: "session-init",
		},
	})

	if err := fl.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Logging after close is a no-op.
	fl.Log(notifyEvent("conn-c", ""))

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer r.Close()

	count := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 events, got %d", count)
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vlog")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}
	fl.Log(notifyEvent("conn-a", "AA:BB:CC:DD:EE:FF"))
	fl.Log(notifyEvent("conn-b", "11:22:33:44:55:66"))
	fl.Log(notifyEvent("conn-a", "AA:BB:CC:DD:EE:FF"))
	fl.Close()

	r, err := NewFilteredReader(path, Filter{ConnectionID: "conn-a"})
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer r.Close()

	count := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if ev.ConnectionID != "conn-a" {
			t.Errorf("filter leaked event for %q", ev.ConnectionID)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 filtered events, got %d", count)
	}
}

type countingLogger struct {
	mu    sync.Mutex
	count int
}

func (c *countingLogger) Log(Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func TestMultiLogger(t *testing.T) {
	a := &countingLogger{}
	b := &countingLogger{}

	ml := NewMultiLogger(a, b, NoopLogger{})
	ml.Log(notifyEvent("conn-1", ""))
	ml.Log(notifyEvent("conn-2", ""))

	if a.count != 2 || b.count != 2 {
		t.Errorf("expected both loggers to receive 2 events, got %d and %d", a.count, b.count)
	}
}

func TestSlogAdapter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger)

	// Exercise each payload shape; must not panic.
	adapter.Log(notifyEvent("conn-1", "AA:BB:CC:DD:EE:FF"))
	adapter.Log(Event{
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityConnection, NewState: "CONNECTED"},
	})
	adapter.Log(Event{
		Category:    CategoryObservation,
		Observation: &ObservationEvent{Kind: ObservationManufacturer, Channel: gatt.ChanManufacturerName, Text: "Transtek"},
	})
	ch := gatt.ChanCurrentTime
	adapter.Log(Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerGatt, Message: "write failed", Channel: &ch},
	})
}
