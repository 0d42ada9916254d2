package central

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalink-protocol/vitalink-go/pkg/decode"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

func newTestInitializer() *Initializer {
	in := NewInitializer(nil, nil, nil)
	in.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local) }
	return in
}

func TestInitializerFullDevice(t *testing.T) {
	in := newTestInitializer()

	conn := newFakeConn("AA:BB",
		gatt.CapDeviceInformation,
		gatt.CapCurrentTime,
		gatt.CapBattery,
		gatt.CapBloodPressure,
		gatt.CapHealthThermometer,
		gatt.CapHeartRate,
	)
	conn.readData[gatt.ChanManufacturerName] = []byte("Acme")
	conn.readData[gatt.ChanModelNumber] = []byte("BP-100")
	conn.readData[gatt.ChanBatteryLevel] = []byte{0x32}

	sess := session.New("AA:BB", "Acme BP Monitor")
	sess.Reset()

	require.NoError(t, in.Run(context.Background(), conn, sess))

	assert.Equal(t, []PriorityHint{PriorityHigh}, conn.hints)

	manufacturer, model := sess.Identification()
	assert.Equal(t, "Acme", manufacturer)
	assert.Equal(t, "BP-100", model)

	assert.Equal(t, []gatt.ChannelID{
		gatt.ChanCurrentTime,
		gatt.ChanBatteryLevel,
		gatt.ChanBloodPressureMeasurement,
		gatt.ChanTemperatureMeasurement,
		gatt.ChanHeartRateMeasurement,
	}, conn.subscribed(), "subscriptions follow registry priority order")

	for _, ch := range conn.subscribed() {
		assert.True(t, sess.IsSubscribed(ch))
	}

	// One default clock write for a non-quirky device.
	writes := conn.writeCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, gatt.ChanCurrentTime, writes[0].Channel)
	assert.Equal(t, WriteWithResponse, writes[0].Mode)
	assert.Equal(t, decode.EncodeDateTime(in.now()), writes[0].Data)
}

func TestInitializerPartialDevice(t *testing.T) {
	in := newTestInitializer()

	conn := newFakeConn("AA:BB", gatt.CapBloodPressure, gatt.CapHeartRate)
	sess := session.New("AA:BB", "Acme BP Monitor")
	sess.Reset()

	require.NoError(t, in.Run(context.Background(), conn, sess))

	assert.Equal(t, []gatt.ChannelID{
		gatt.ChanBloodPressureMeasurement,
		gatt.ChanHeartRateMeasurement,
	}, conn.subscribed(), "only offered capabilities are set up")

	assert.Empty(t, conn.writeCalls(), "no clock capability, no clock write")
	assert.False(t, sess.IsSubscribed(gatt.ChanBatteryLevel))
	assert.False(t, sess.IsSubscribed(gatt.ChanCurrentTime))

	assert.True(t, sess.HasCapability(gatt.CapBloodPressure))
	assert.False(t, sess.HasCapability(gatt.CapBattery))
}

func TestInitializerQuirkSuppressesClockWrite(t *testing.T) {
	in := newTestInitializer()

	conn := newFakeConn("AA:BB", gatt.CapCurrentTime)
	sess := session.New("AA:BB", "TMB-1490")
	sess.Reset()

	require.NoError(t, in.Run(context.Background(), conn, sess))

	assert.Empty(t, conn.writeCalls(), "quirky vendor skips the default clock write")
	assert.True(t, sess.IsSubscribed(gatt.ChanCurrentTime), "subscription still activated")
}

func TestInitializerClockChannelWithoutWriteSupport(t *testing.T) {
	in := newTestInitializer()

	conn := newFakeConn("AA:BB", gatt.CapCurrentTime)
	conn.noWrite[gatt.ChanCurrentTime] = true

	sess := session.New("AA:BB", "Acme Clock")
	sess.Reset()

	require.NoError(t, in.Run(context.Background(), conn, sess))
	assert.Empty(t, conn.writeCalls())
}

func TestInitializerFailuresAreIsolated(t *testing.T) {
	in := newTestInitializer()

	conn := newFakeConn("AA:BB",
		gatt.CapDeviceInformation,
		gatt.CapBattery,
		gatt.CapBloodPressure,
		gatt.CapHeartRate,
	)
	conn.readData[gatt.ChanModelNumber] = []byte("BP-100")
	conn.readErr[gatt.ChanManufacturerName] = errors.New("read timeout")
	conn.readErr[gatt.ChanBatteryLevel] = errors.New("read timeout")
	conn.subErr[gatt.ChanBloodPressureMeasurement] = errors.New("descriptor write failed")

	sess := session.New("AA:BB", "Acme BP Monitor")
	sess.Reset()

	require.NoError(t, in.Run(context.Background(), conn, sess))

	// Later capabilities still get set up after earlier failures.
	assert.Equal(t, []gatt.ChannelID{
		gatt.ChanBatteryLevel,
		gatt.ChanHeartRateMeasurement,
	}, conn.subscribed())

	assert.False(t, sess.IsSubscribed(gatt.ChanBloodPressureMeasurement),
		"failed subscription is not recorded")

	manufacturer, model := sess.Identification()
	assert.Empty(t, manufacturer)
	assert.Equal(t, "BP-100", model)
}

func TestInitializerCancelledContext(t *testing.T) {
	in := newTestInitializer()

	conn := newFakeConn("AA:BB", gatt.CapBloodPressure)
	sess := session.New("AA:BB", "Acme BP Monitor")
	sess.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := in.Run(ctx, conn, sess)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conn.subscribed())
}
