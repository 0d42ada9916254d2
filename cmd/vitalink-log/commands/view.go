// Package commands implements the vitalink-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

// RunView reads the log file and writes matching events in human-readable
// form to output.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if !filter.matches(event) {
			continue
		}
		formatEvent(output, event)
	}
	return nil
}

func (f *ViewFilter) matches(event log.Event) bool {
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	return true
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Channel != nil:
		typeLabel = event.Channel.Op.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Observation != nil:
		typeLabel = event.Observation.Kind.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, connID, dir, event.Layer, typeLabel)

	if event.Device != "" {
		if event.DeviceName != "" {
			fmt.Fprintf(w, "  Device: %s (%s)\n", event.Device, event.DeviceName)
		} else {
			fmt.Fprintf(w, "  Device: %s\n", event.Device)
		}
	}

	switch {
	case event.Channel != nil:
		formatChannelDetails(w, event.Channel)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Observation != nil:
		formatObservationDetails(w, event.Observation)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatChannelDetails(w io.Writer, ch *log.ChannelEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", ch.Channel)
	if ch.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", ch.Size)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatObservationDetails(w io.Writer, ob *log.ObservationEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", ob.Channel)
	if ob.Text != "" {
		fmt.Fprintf(w, "  Value: %q\n", ob.Text)
	} else {
		fmt.Fprintf(w, "  Value: %d\n", ob.Value)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
	if err.Channel != nil {
		fmt.Fprintf(w, "  Channel: %s\n", *err.Channel)
	}
}

// ParseLayerFlag parses a layer string from a command-line flag
// (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "gatt":
		return log.LayerGatt, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, gatt, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from a command-line flag
// (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag
// (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "channel":
		return log.CategoryChannel, nil
	case "state":
		return log.CategoryState, nil
	case "observation":
		return log.CategoryObservation, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be channel, state, observation, or error)", s)
	}
}
