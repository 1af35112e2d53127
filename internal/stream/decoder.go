// Package stream implements the client side of the execution stream: a
// frame decoder for the line-oriented event wire format, the HTTP run
// client, and the consumption loop that folds decoded events into a
// flow's execution state.
package stream

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/flowviz-labs/flowviz/internal/event"
)

const readChunkSize = 4096

// Decoder turns an arbitrary chunked byte stream into an ordered
// sequence of decoded event records. Chunks may split a frame anywhere,
// including inside a multi-byte character; the decoder only ever splits
// on complete line boundaries.
type Decoder struct {
	r      io.Reader
	logger *slog.Logger

	buf     []byte
	pending string
	data    []string
	queue   []*event.Event
	eof     bool
	flushed bool
}

// NewDecoder creates a decoder reading raw chunks from r.
func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		r:      r,
		logger: logger,
		buf:    make([]byte, readChunkSize),
	}
}

// Next returns the next decoded event record, blocking on the underlying
// reader as needed. It returns io.EOF once the stream is exhausted and
// any accumulated-but-unterminated frame has been flushed. Cancellation
// is checked before every read; on cancellation Next returns ctx.Err()
// without flushing a partial frame.
func (d *Decoder) Next(ctx context.Context) (*event.Event, error) {
	for {
		if len(d.queue) > 0 {
			ev := d.queue[0]
			d.queue = d.queue[1:]
			return ev, nil
		}

		if d.eof {
			d.flush()
			if len(d.queue) > 0 {
				continue
			}
			return nil, io.EOF
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.feed(string(d.buf[:n]))
		}
		if err == io.EOF {
			d.eof = true
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// feed appends a chunk and processes every complete line, holding back
// a trailing partial line for the next chunk.
func (d *Decoder) feed(chunk string) {
	d.pending += chunk
	for {
		idx := strings.IndexByte(d.pending, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimSuffix(d.pending[:idx], "\r")
		d.pending = d.pending[idx+1:]
		d.handleLine(line)
	}
}

// handleLine classifies one complete line of the wire format.
func (d *Decoder) handleLine(line string) {
	switch {
	case line == "":
		d.dispatch()
	case strings.HasPrefix(line, "data:"):
		payload := strings.TrimPrefix(line, "data:")
		// A single leading space after the colon is part of the
		// framing, not the payload.
		payload = strings.TrimPrefix(payload, " ")
		d.data = append(d.data, payload)
	case strings.HasPrefix(line, "event:"):
		// Informational label only; the payload carries its own type.
	default:
		// Comment or unknown field, ignored.
	}
}

// dispatch decodes the accumulated data lines as one event record.
// Malformed payloads are logged and skipped; they never fail the stream.
func (d *Decoder) dispatch() {
	if len(d.data) == 0 {
		return
	}
	payload := strings.Join(d.data, "")
	d.data = nil

	ev, err := event.Decode([]byte(payload))
	if err != nil {
		d.logger.Warn("skipping malformed frame", "error", err, "payload_len", len(payload))
		return
	}
	d.queue = append(d.queue, ev)
}

// flush processes a trailing unterminated frame exactly once, at end of
// stream.
func (d *Decoder) flush() {
	if d.flushed {
		return
	}
	d.flushed = true
	if d.pending != "" {
		line := strings.TrimSuffix(d.pending, "\r")
		d.pending = ""
		d.handleLine(line)
	}
	d.dispatch()
}
