package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	if event.DeviceName != "" {
		attrs = append(attrs, slog.String("device_name", event.DeviceName))
	}

	// Add type-specific attributes
	switch {
	case event.Channel != nil:
		attrs = append(attrs,
			slog.String("op", event.Channel.Op.String()),
			slog.String("channel", event.Channel.Channel.String()),
		)
		if event.Channel.Size > 0 {
			attrs = append(attrs, slog.Int("size", event.Channel.Size))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Observation != nil:
		attrs = append(attrs,
			slog.String("kind", event.Observation.Kind.String()),
			slog.String("channel", event.Observation.Channel.String()),
		)
		if event.Observation.Text != "" {
			attrs = append(attrs, slog.String("text", event.Observation.Text))
		} else {
			attrs = append(attrs, slog.Uint64("value", event.Observation.Value))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Channel != nil {
			attrs = append(attrs, slog.String("error_channel", event.Error.Channel.String()))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
