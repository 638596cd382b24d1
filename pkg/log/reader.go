package log

import (
	"errors"
	"io"
	"iter"
	"os"
	"strings"
	"time"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	// SessionID matches by prefix, so shortened IDs from the viewer work.
	SessionID string

	Direction *Direction
	Category  *Category
	Kind      *MessageKind

	// Command matches message events by command or event name.
	Command string

	NodeID *uint64

	TimeStart *time.Time // inclusive
	TimeEnd   *time.Time // exclusive
}

// Matches reports whether event satisfies every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && !strings.HasPrefix(event.SessionID, f.SessionID) {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}

	if f.Kind == nil && f.Command == "" && f.NodeID == nil {
		return true
	}
	m := event.Message
	if m == nil {
		return false
	}
	if f.Kind != nil && m.Kind != *f.Kind {
		return false
	}
	if f.Command != "" && m.Command != f.Command {
		return false
	}
	if f.NodeID != nil && (m.NodeID == nil || *m.NodeID != *f.NodeID) {
		return false
	}
	return true
}

// Reader streams events from a log.
type Reader struct {
	closer io.Closer
	dec    interface{ Decode(any) error }
	filter Filter
}

// NewReader reads events from r.
func NewReader(r io.Reader, filter Filter) *Reader {
	rd := &Reader{dec: NewDecoder(r), filter: filter}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

// Open reads events from the file at path.
func Open(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f, filter), nil
}

// Next returns the next matching event, or io.EOF at the end of the log.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// All iterates the remaining matching events. A decoding error is yielded
// once and ends the iteration; io.EOF ends it silently.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
