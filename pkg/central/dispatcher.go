package central

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/decode"
	"github.com/vitalink-protocol/vitalink-go/pkg/event"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

// Dispatcher routes data-channel updates from an established connection:
// measurements become domain events on the bus, clock notifications feed
// the quirk policy, battery and identification values are recorded as
// observations. Malformed payloads are dropped.
type Dispatcher struct {
	quirk  *QuirkPolicy
	pub    event.Publisher
	plog   log.Logger
	logger *slog.Logger

	// now stamps outgoing domain events.
	now func() time.Time
}

// NewDispatcher creates a dispatcher publishing domain events through pub.
func NewDispatcher(quirk *QuirkPolicy, pub event.Publisher, plog log.Logger, logger *slog.Logger) *Dispatcher {
	if quirk == nil {
		quirk = NewQuirkPolicy()
	}
	if pub == nil {
		pub = event.NopPublisher{}
	}
	if plog == nil {
		plog = log.NoopLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		quirk:  quirk,
		pub:    pub,
		plog:   plog,
		logger: logger,
		now:    time.Now,
	}
}

// Dispatch processes one update. It is called from the identity's worker
// goroutine, so updates for one device are handled strictly in order.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, sess *session.Session, up Update) {
	if up.Err != nil {
		d.plog.Log(errorEvent(sess, log.LayerGatt, up.Err, "channel update", &up.Channel))
		return
	}

	ch, _, ok := gatt.LookupChannel(up.Channel)
	if !ok {
		d.logger.Debug("update on unknown channel",
			"device", sess.Identity(), "channel", up.Channel)
		return
	}

	d.plog.Log(channelEvent(sess, log.DirectionIn, log.ChannelOpNotify, ch.ID, len(up.Data)))

	switch ch.Rule {
	case gatt.RuleBloodPressure:
		bp, err := decode.BloodPressureMeasurement(up.Data)
		if err != nil {
			d.dropMalformed(sess, ch.ID, err)
			return
		}
		d.pub.Publish(event.TypeBloodPressure, event.BloodPressureMeasurement{
			BloodPressure: bp,
			Device:        sess.Identity(),
			DeviceName:    sess.Name(),
			ReceivedAt:    d.now(),
		})

	case gatt.RuleTemperature:
		temp, err := decode.TemperatureMeasurement(up.Data)
		if err != nil {
			d.dropMalformed(sess, ch.ID, err)
			return
		}
		d.pub.Publish(event.TypeTemperature, event.TemperatureMeasurement{
			Temperature: temp,
			Device:      sess.Identity(),
			DeviceName:  sess.Name(),
			ReceivedAt:  d.now(),
		})

	case gatt.RuleHeartRate:
		hr, err := decode.HeartRateMeasurement(up.Data)
		if err != nil {
			d.dropMalformed(sess, ch.ID, err)
			return
		}
		d.pub.Publish(event.TypeHeartRate, event.HeartRateMeasurement{
			HeartRate:  hr,
			Device:     sess.Identity(),
			DeviceName: sess.Name(),
			ReceivedAt: d.now(),
		})

	case gatt.RuleDateTime:
		d.handleClockUpdate(ctx, conn, sess, up.Data)

	case gatt.RuleUint8:
		level, err := decode.BatteryLevel(up.Data)
		if err != nil {
			d.dropMalformed(sess, ch.ID, err)
			return
		}
		d.plog.Log(observationEvent(sess, log.ObservationBatteryLevel, ch.ID, "", uint64(level)))

	case gatt.RuleUTF8:
		s, err := decode.String(up.Data)
		if err != nil {
			d.dropMalformed(sess, ch.ID, err)
			return
		}
		kind := log.ObservationManufacturer
		if ch.ID == gatt.ChanModelNumber {
			kind = log.ObservationModel
		}
		d.plog.Log(observationEvent(sess, kind, ch.ID, s, 0))
	}
}

// handleClockUpdate decodes a clock notification and evaluates the
// vendor quirk: devices that rejected the default clock write get a
// one-shot correction written back once their first notification shows
// excessive drift.
func (d *Dispatcher) handleClockUpdate(ctx context.Context, conn Conn, sess *session.Session, data []byte) {
	deviceTime, err := decode.DateTime(data)
	if err != nil {
		// Malformed payloads are dropped without touching the
		// attempt counter.
		d.dropMalformed(sess, gatt.ChanCurrentTime, err)
		return
	}

	bpNotifying := sess.IsSubscribed(gatt.ChanBloodPressureMeasurement)
	payload, ok := d.quirk.OnClockUpdate(sess, sess.Name(), deviceTime, bpNotifying)
	if !ok {
		return
	}

	ch := gatt.ChanCurrentTime
	if err := conn.Write(ctx, ch, payload, WriteWithResponse); err != nil {
		d.plog.Log(errorEvent(sess, log.LayerGatt, err, "clock correction write", &ch))
		d.logger.Warn("clock correction write failed",
			"device", sess.Identity(), "error", err)
		return
	}
	d.plog.Log(channelEvent(sess, log.DirectionOut, log.ChannelOpWrite, ch, len(payload)))
	d.logger.Info("clock correction written",
		"device", sess.Identity(), "name", sess.Name(), "deviceTime", deviceTime)
}

func (d *Dispatcher) dropMalformed(sess *session.Session, ch gatt.ChannelID, err error) {
	d.plog.Log(errorEvent(sess, log.LayerSession, err, "decode update", &ch))
	d.logger.Debug("malformed update dropped",
		"device", sess.Identity(), "channel", ch, "error", err)
}
