package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// RunExport converts a .vlog file to a text format that external tools
// can ingest. Supported formats are jsonl and csv. An empty output path
// writes to stdout.
func RunExport(path, format, output string) error {
	var export func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		export = exportJSONL
	case "csv":
		export = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return forEachEvent(reader, func(event log.Event) error {
		return encoder.Encode(event)
	})
}

var csvHeader = []string{
	"timestamp", "connection_id", "direction", "layer", "category",
	"device", "device_name", "type", "channel",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return forEachEvent(reader, func(event log.Event) error {
		return cw.Write(csvRow(event))
	})
}

func csvRow(event log.Event) []string {
	eventType := "unknown"
	channel := ""
	switch {
	case event.Channel != nil:
		eventType = event.Channel.Op.String()
		channel = event.Channel.Channel.String()
	case event.StateChange != nil:
		eventType = "state"
	case event.Observation != nil:
		eventType = event.Observation.Kind.String()
		channel = event.Observation.Channel.String()
	case event.Error != nil:
		eventType = "error"
		if event.Error.Channel != nil {
			channel = event.Error.Channel.String()
		}
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		event.Device,
		event.DeviceName,
		eventType,
		channel,
	}
}

func forEachEvent(reader *log.Reader, fn func(log.Event) error) error {
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
}
