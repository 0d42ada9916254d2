package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects a subset of a log. Zero-valued fields match everything,
// so the zero Filter passes the whole stream through.
type Filter struct {
	// ConnectionID selects a single connection instance.
	ConnectionID string

	// Direction selects incoming or outgoing events.
	Direction *Direction

	// Layer selects one protocol layer.
	Layer *Layer

	// Category selects one event category.
	Category *Category

	// TimeStart keeps events at or after this time.
	TimeStart *time.Time

	// TimeEnd keeps events strictly before this time.
	TimeEnd *time.Time

	// Device selects a single device identity.
	Device string
}

func (f *Filter) matches(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.Device != "" && event.Device != f.Device:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader streams events out of a .vlog file one at a time, so analysis
// tools do not need to hold a whole session log in memory.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path and streams every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and streams only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at end of stream.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
