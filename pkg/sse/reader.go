package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader splits a completion stream into lines and yields one Event per
// "data:" line. Chat providers do not reliably separate events with blank
// lines, so data lines are never joined: a corrupt line stays isolated from
// its neighbours.
//
// When built with NewTeeReader every raw line is also written, verbatim, to
// a destination:
//
//	source ──▶ Reader.Next() ──▶ Event
//	                 │
//	                 ▼
//	          destination io.Writer
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	// eventType and id apply to data lines until the next blank line.
	eventType string
	id        string
}

// NewReader returns a Reader that parses data lines from src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader that parses data lines from src and writes
// all raw bytes through to dest. A nil dest disables the tee.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		scanner: scanner,
		dest:    dest,
	}
}

// Next returns the event for the next data line. It returns nil, nil when
// the source is exhausted.
//
// Lines longer than 1 MiB fail with bufio.ErrTooLong.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := r.scanner.Text()

		// bufio.Scanner strips the newline, so reinsert it for the tee.
		if r.dest != nil {
			if _, err := io.WriteString(r.dest, raw+"\n"); err != nil {
				return nil, err
			}
		}

		raw = strings.TrimSuffix(raw, "\r")
		if raw == "" {
			r.eventType = ""
			r.id = ""
			continue
		}

		// Comments and keep-alives.
		if strings.HasPrefix(raw, ":") {
			continue
		}

		if ev := r.parseLine(raw); ev != nil {
			return ev, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, nil
}

// parseLine handles one "field:value" line, dropping a single space after
// the colon. Only data lines produce an Event.
func (r *Reader) parseLine(line string) *Event {
	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		return &Event{Type: r.eventType, Data: value, ID: r.id}
	case "event":
		r.eventType = value
	case "id":
		r.id = value
	}

	// "retry" and unknown fields are ignored.
	return nil
}
