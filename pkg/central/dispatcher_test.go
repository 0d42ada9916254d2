package central

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalink-protocol/vitalink-go/pkg/decode"
	"github.com/vitalink-protocol/vitalink-go/pkg/event"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

func sfloat16(mantissa int16, exponent int8) []byte {
	raw := (uint16(mantissa) & 0x0FFF) | ((uint16(exponent) & 0x0F) << 12)
	return []byte{byte(raw), byte(raw >> 8)}
}

func bpPayload(sys, dia, mean int16) []byte {
	data := []byte{0x00}
	data = append(data, sfloat16(sys, 0)...)
	data = append(data, sfloat16(dia, 0)...)
	data = append(data, sfloat16(mean, 0)...)
	return data
}

func newDispatchFixture(name string) (*Dispatcher, *capturePub, *fakeConn, *session.Session) {
	pub := &capturePub{}
	quirk := NewQuirkPolicy()
	quirk.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local) }

	d := NewDispatcher(quirk, pub, nil, nil)
	d.now = quirk.now

	conn := newFakeConn("AA:BB")
	sess := session.New("AA:BB", name)
	sess.Reset()

	return d, pub, conn, sess
}

func TestDispatchBloodPressure(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("Acme BP Monitor")

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanBloodPressureMeasurement,
		Data:    bpPayload(120, 80, 93),
	})

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeBloodPressure, events[0].Type)

	bp, ok := events[0].Data.(event.BloodPressureMeasurement)
	require.True(t, ok)
	assert.Equal(t, "AA:BB", bp.Device)
	assert.Equal(t, "Acme BP Monitor", bp.DeviceName)
	assert.InDelta(t, 120.0, bp.Systolic, 0.001)
	assert.InDelta(t, 80.0, bp.Diastolic, 0.001)
	assert.InDelta(t, 93.0, bp.MeanArterial, 0.001)
	assert.False(t, bp.ReceivedAt.IsZero())
}

func TestDispatchTemperature(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("Acme Thermo")

	// 36.6 C: FLOAT32 mantissa 366, exponent -1.
	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanTemperatureMeasurement,
		Data:    []byte{0x00, 0x6E, 0x01, 0x00, 0xFF},
	})

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeTemperature, events[0].Type)

	temp, ok := events[0].Data.(event.TemperatureMeasurement)
	require.True(t, ok)
	assert.InDelta(t, 36.6, temp.Value, 0.001)
	assert.Equal(t, decode.UnitCelsius, temp.Unit)
}

func TestDispatchHeartRate(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("Acme HR Strap")

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanHeartRateMeasurement,
		Data:    []byte{0x00, 0x48},
	})

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeHeartRate, events[0].Type)

	hr, ok := events[0].Data.(event.HeartRateMeasurement)
	require.True(t, ok)
	assert.Equal(t, 72, hr.BPM)
}

func TestDispatchErrorStatusDropped(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("TMB-1490")
	sess.AddSubscription(gatt.ChanBloodPressureMeasurement)

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanCurrentTime,
		Err:     errors.New("attribute read failed"),
	})

	assert.Empty(t, pub.all())
	assert.Empty(t, conn.writeCalls())
	assert.Zero(t, sess.ClockSyncAttempts(), "error updates never touch the counter")
}

func TestDispatchMalformedPayloadDropped(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("TMB-1490")
	sess.AddSubscription(gatt.ChanBloodPressureMeasurement)

	for _, up := range []Update{
		{Channel: gatt.ChanBloodPressureMeasurement, Data: []byte{0x00, 0x78}},
		{Channel: gatt.ChanCurrentTime, Data: []byte{0x01, 0x02}},
		{Channel: gatt.ChanBatteryLevel, Data: nil},
	} {
		d.Dispatch(context.Background(), conn, sess, up)
	}

	assert.Empty(t, pub.all())
	assert.Empty(t, conn.writeCalls())
	assert.Zero(t, sess.ClockSyncAttempts())
}

func TestDispatchUnknownChannelIgnored(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("Acme BP Monitor")

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChannelID(0x2AFF),
		Data:    []byte{0x01},
	})

	assert.Empty(t, pub.all())
	assert.Empty(t, conn.writeCalls())
}

func TestDispatchBatteryObservationOnly(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("Acme BP Monitor")

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanBatteryLevel,
		Data:    []byte{0x32},
	})

	assert.Empty(t, pub.all(), "battery levels are observability only")
	assert.Empty(t, conn.writeCalls())
}

func TestDispatchClockNonQuirkyNeverWrites(t *testing.T) {
	d, pub, conn, sess := newDispatchFixture("Acme BP Monitor")
	sess.AddSubscription(gatt.ChanBloodPressureMeasurement)

	drifted := d.now().Add(-time.Hour)

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanCurrentTime,
		Data:    decode.EncodeDateTime(drifted),
	})

	assert.Empty(t, conn.writeCalls())
	assert.Empty(t, pub.all(), "clock updates never emit domain events")
}

func TestDispatchClockQuirkCorrection(t *testing.T) {
	d, _, conn, sess := newDispatchFixture("TMB-1490")
	sess.AddSubscription(gatt.ChanBloodPressureMeasurement)

	drifted := decode.EncodeDateTime(d.now().Add(-25 * time.Minute))

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanCurrentTime,
		Data:    drifted,
	})

	writes := conn.writeCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, gatt.ChanCurrentTime, writes[0].Channel)
	assert.Equal(t, decode.EncodeDateTime(d.now()), writes[0].Data)

	// The correction is one shot per session.
	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanCurrentTime,
		Data:    drifted,
	})
	assert.Len(t, conn.writeCalls(), 1)
}

func TestDispatchClockQuirkRequiresNotifyingBloodPressure(t *testing.T) {
	d, _, conn, sess := newDispatchFixture("TMB-1490")

	drifted := decode.EncodeDateTime(d.now().Add(time.Hour))

	d.Dispatch(context.Background(), conn, sess, Update{
		Channel: gatt.ChanCurrentTime,
		Data:    drifted,
	})

	assert.Empty(t, conn.writeCalls())
	assert.Zero(t, sess.ClockSyncAttempts())
}
