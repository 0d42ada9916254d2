package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// FilterOptions selects the events the filter command keeps. String
// fields left empty do not constrain the output.
type FilterOptions struct {
	Output    string
	ConnID    string
	Device    string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

func (opts FilterOptions) buildFilter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: opts.ConnID,
		Device:       opts.Device,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if opts.Layer != "" {
		l, err := ParseLayerFlag(opts.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if opts.Direction != "" {
		d, err := ParseDirectionFlag(opts.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// RunFilter copies events matching opts from path into a new .vlog file.
// The output file stays in the native CBOR format so it can be fed back
// into view, stats, or export.
func RunFilter(path string, opts FilterOptions) error {
	filter, err := opts.buildFilter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		out.Log(event)
		count++
	}

	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
	return nil
}
