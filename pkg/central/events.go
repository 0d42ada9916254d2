package central

import (
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

// Protocol log event builders shared by the initializer, dispatcher and
// service.

func channelEvent(sess *session.Session, dir log.Direction, op log.ChannelOp, ch gatt.ChannelID, size int) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: sess.ConnID(),
		Direction:    dir,
		Layer:        log.LayerGatt,
		Category:     log.CategoryChannel,
		Device:       sess.Identity(),
		DeviceName:   sess.Name(),
		Channel: &log.ChannelEvent{
			Op:      op,
			Channel: ch,
			Size:    size,
		},
	}
}

func stateEvent(sess *session.Session, entity log.StateEntity, oldState, newState, reason string) log.Event {
	ev := log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
	if sess != nil {
		ev.ConnectionID = sess.ConnID()
		ev.Device = sess.Identity()
		ev.DeviceName = sess.Name()
	}
	return ev
}

func observationEvent(sess *session.Session, kind log.ObservationKind, ch gatt.ChannelID, text string, value uint64) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: sess.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryObservation,
		Device:       sess.Identity(),
		DeviceName:   sess.Name(),
		Observation: &log.ObservationEvent{
			Kind:    kind,
			Channel: ch,
			Text:    text,
			Value:   value,
		},
	}
}

func errorEvent(sess *session.Session, layer log.Layer, err error, context string, ch *gatt.ChannelID) log.Event {
	ev := log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
			Channel: ch,
		},
	}
	if sess != nil {
		ev.ConnectionID = sess.ConnID()
		ev.Device = sess.Identity()
		ev.DeviceName = sess.Name()
	}
	return ev
}
