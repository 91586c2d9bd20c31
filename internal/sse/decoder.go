package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

const dataPrefix = "data: "

// Decoder turns arbitrary byte reads of an event stream back into events.
// Reads may split a frame, or a multi-byte rune, anywhere; the incomplete
// tail is held until the next Feed. Complete lines that are not valid
// event JSON are dropped.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p and returns every event completed by it.
func (d *Decoder) Feed(p []byte) []domain.StreamEvent {
	d.buf = append(d.buf, p...)

	var events []domain.StreamEvent
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if ev, ok := parseLine(line); ok {
			events = append(events, ev)
		}
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return events
}

// Flush parses whatever remains buffered as a final line.
func (d *Decoder) Flush() []domain.StreamEvent {
	line := d.buf
	d.buf = nil
	if ev, ok := parseLine(line); ok {
		return []domain.StreamEvent{ev}
	}
	return nil
}

// Pending returns the number of buffered bytes awaiting a newline.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func parseLine(line []byte) (domain.StreamEvent, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return domain.StreamEvent{}, false
	}
	var ev domain.StreamEvent
	if err := json.Unmarshal(line[len(dataPrefix):], &ev); err != nil {
		return domain.StreamEvent{}, false
	}
	return ev, true
}

// ReadAll decodes r until EOF, calling fn for each event in order. It stops
// early and returns fn's error if fn fails.
func ReadAll(r io.Reader, fn func(domain.StreamEvent) error) error {
	dec := NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				if ferr := fn(ev); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			for _, ev := range dec.Flush() {
				if ferr := fn(ev); ferr != nil {
					return ferr
				}
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
