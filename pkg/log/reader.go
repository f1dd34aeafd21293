package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	// ConnectionID filters by exact connection ID.
	ConnectionID string

	// Direction filters by message direction.
	Direction *Direction

	// Layer filters by layer.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// Mode filters by session mode.
	Mode *Mode

	// Opcode filters protocol messages by leading hex byte.
	Opcode string

	// ThingID filters by device identifier.
	ThingID string

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// Matches reports whether the event satisfies every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Mode != nil && event.Mode != *f.Mode {
		return false
	}
	if f.Opcode != "" && (event.Message == nil || event.Message.Opcode != f.Opcode) {
		return false
	}
	if f.ThingID != "" && event.ThingID != f.ThingID {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events from a capture file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a capture file returning every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file returning matching events.
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

// Next returns the next matching event, or io.EOF at the end of the file.
// A capture cut off mid-event also ends with io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Stats summarises a capture.
type Stats struct {
	Events      int
	Connections int
	ByCategory  map[Category]int
	ByOpcode    map[string]int
	FirstEvent  time.Time
	LastEvent   time.Time
}

// Collect reads the remaining events and summarises them.
func (r *Reader) Collect() (Stats, error) {
	stats := Stats{
		ByCategory: make(map[Category]int),
		ByOpcode:   make(map[string]int),
	}
	conns := make(map[string]struct{})
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		if stats.Events == 0 {
			stats.FirstEvent = event.Timestamp
		}
		stats.LastEvent = event.Timestamp
		stats.Events++
		stats.ByCategory[event.Category]++
		if event.Message != nil {
			stats.ByOpcode[event.Message.Opcode]++
		}
		if event.ConnectionID != "" {
			conns[event.ConnectionID] = struct{}{}
		}
	}
	stats.Connections = len(conns)
	return stats, nil
}
