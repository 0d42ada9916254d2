package central

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/decode"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

// Initializer brings a freshly established connection into an operating
// session: it requests a connection priority, then walks the registry
// in priority order and sets up every capability the device offers.
//
// Setup is best effort per channel. A failed read or subscription is
// logged and skipped; it never aborts the remaining capabilities and
// never fails the connection.
type Initializer struct {
	quirk  *QuirkPolicy
	plog   log.Logger
	logger *slog.Logger

	// now is the local clock source for the default clock write.
	now func() time.Time
}

// NewInitializer creates an initializer using the given quirk policy and
// loggers.
func NewInitializer(quirk *QuirkPolicy, plog log.Logger, logger *slog.Logger) *Initializer {
	if quirk == nil {
		quirk = NewQuirkPolicy()
	}
	if plog == nil {
		plog = log.NoopLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{
		quirk:  quirk,
		plog:   plog,
		logger: logger,
		now:    time.Now,
	}
}

// Run initializes the session over an established connection. It
// returns an error only when ctx is cancelled; channel-level failures
// are tolerated.
func (in *Initializer) Run(ctx context.Context, conn Conn, sess *session.Session) error {
	// The hint is advisory. Transports that cannot honor it report an
	// error which is logged and ignored.
	if err := conn.RequestPriorityHint(PriorityHigh); err != nil {
		in.logger.Debug("priority hint not honored",
			"device", sess.Identity(), "error", err)
	}

	offered := make(map[gatt.CapabilityID]struct{}, len(gatt.Capabilities()))
	for _, id := range conn.Capabilities() {
		offered[id] = struct{}{}
	}

	for _, cap := range gatt.Capabilities() {
		if _, ok := offered[cap.ID]; !ok {
			continue
		}
		sess.AddCapability(cap.ID)

		for _, ch := range cap.Channels {
			if err := ctx.Err(); err != nil {
				return err
			}
			in.setupChannel(ctx, conn, sess, ch)
		}
	}

	in.plog.Log(stateEvent(sess, log.StateEntitySession, "", "INITIALIZED", ""))
	in.logger.Info("session initialized",
		"device", sess.Identity(),
		"name", sess.Name(),
		"subscriptions", len(sess.Subscriptions()))

	return nil
}

func (in *Initializer) setupChannel(ctx context.Context, conn Conn, sess *session.Session, ch gatt.Channel) {
	if ch.Access.CanRead() {
		in.readChannel(ctx, conn, sess, ch)
	}
	if ch.Access.CanNotify() {
		in.subscribeChannel(conn, sess, ch)
	}
	if ch.ID == gatt.ChanCurrentTime {
		in.writeDefaultClock(ctx, conn, sess)
	}
}

// readChannel performs the one-shot initialization read for channels
// that carry static or slowly changing values.
func (in *Initializer) readChannel(ctx context.Context, conn Conn, sess *session.Session, ch gatt.Channel) {
	data, err := conn.Read(ctx, ch.ID)
	if err != nil {
		in.plog.Log(errorEvent(sess, log.LayerGatt, err, "initialization read", &ch.ID))
		in.logger.Warn("initialization read failed",
			"device", sess.Identity(), "channel", ch.ID, "error", err)
		return
	}
	in.plog.Log(channelEvent(sess, log.DirectionIn, log.ChannelOpRead, ch.ID, len(data)))

	switch ch.Rule {
	case gatt.RuleUTF8:
		s, err := decode.String(data)
		if err != nil {
			in.plog.Log(errorEvent(sess, log.LayerSession, err, "decode identification", &ch.ID))
			return
		}
		switch ch.ID {
		case gatt.ChanManufacturerName:
			sess.SetIdentification(s, "")
			in.plog.Log(observationEvent(sess, log.ObservationManufacturer, ch.ID, s, 0))
		case gatt.ChanModelNumber:
			sess.SetIdentification("", s)
			in.plog.Log(observationEvent(sess, log.ObservationModel, ch.ID, s, 0))
		}

	case gatt.RuleUint8:
		level, err := decode.BatteryLevel(data)
		if err != nil {
			in.plog.Log(errorEvent(sess, log.LayerSession, err, "decode battery level", &ch.ID))
			return
		}
		in.plog.Log(observationEvent(sess, log.ObservationBatteryLevel, ch.ID, "", uint64(level)))

	case gatt.RuleDateTime:
		// Initial clock value is informational only. The correction
		// path runs on notifications, not on this read.
	}
}

func (in *Initializer) subscribeChannel(conn Conn, sess *session.Session, ch gatt.Channel) {
	if err := conn.Subscribe(ch.ID, true); err != nil {
		in.plog.Log(errorEvent(sess, log.LayerGatt, err, "subscribe", &ch.ID))
		in.logger.Warn("subscription failed",
			"device", sess.Identity(), "channel", ch.ID, "error", err)
		return
	}
	sess.AddSubscription(ch.ID)
	in.plog.Log(channelEvent(sess, log.DirectionOut, log.ChannelOpSubscribe, ch.ID, 0))
}

// writeDefaultClock synchronizes the device clock to local time during
// initialization. The quirk policy suppresses it for devices known to
// reject the write.
func (in *Initializer) writeDefaultClock(ctx context.Context, conn Conn, sess *session.Session) {
	if !in.quirk.ShouldWriteDefaultClock(sess.Name()) {
		in.logger.Debug("default clock write suppressed",
			"device", sess.Identity(), "name", sess.Name())
		return
	}
	if !conn.SupportsWrite(gatt.ChanCurrentTime) {
		return
	}

	payload := decode.EncodeDateTime(in.now())
	ch := gatt.ChanCurrentTime
	if err := conn.Write(ctx, ch, payload, WriteWithResponse); err != nil {
		in.plog.Log(errorEvent(sess, log.LayerGatt, err, "default clock write", &ch))
		in.logger.Warn("default clock write failed",
			"device", sess.Identity(), "error", err)
		return
	}
	in.plog.Log(channelEvent(sess, log.DirectionOut, log.ChannelOpWrite, ch, len(payload)))
}
