// Package sse frames and parses Server-Sent Events streams.
package sse

import (
	"bufio"
	"io"
	"net/http"
	"strings"
)

// DoneMarker is the bare termination sentinel understood by
// OpenAI-style stream consumers.
const DoneMarker = "[DONE]"

// Chunk is one outbound SSE message: an optional event label, an
// optional message id, and the data payload. Multi-line payloads are
// split into one data: line per line on the wire.
type Chunk struct {
	Event string
	ID    string
	Data  string
}

// Encoder writes SSE frames to w, flushing after every chunk when w is
// an http.Flusher so the client sees incremental delivery.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder returns an Encoder over w.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// WriteChunk frames and flushes a single chunk.
func (e *Encoder) WriteChunk(chunk Chunk) error {
	var b strings.Builder
	if chunk.Event != "" {
		b.WriteString("event: ")
		b.WriteString(chunk.Event)
		b.WriteString("\n")
	}
	if chunk.ID != "" {
		b.WriteString("id: ")
		b.WriteString(chunk.ID)
		b.WriteString("\n")
	}
	for _, line := range strings.Split(chunk.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return err
	}
	e.flush()
	return nil
}

// WriteDone emits the bare [DONE] sentinel frame.
func (e *Encoder) WriteDone() error {
	return e.WriteChunk(Chunk{Data: DoneMarker})
}

func (e *Encoder) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

// Decoder reads SSE frames back out of a stream. It is the counterpart
// used by clients consuming agent responses.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// Next returns the next chunk, or io.EOF when the stream ends. Comment
// lines and unknown fields are ignored.
func (d *Decoder) Next() (Chunk, error) {
	var chunk Chunk
	seen := false

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// Blank line terminates a frame.
		if line == "" {
			if seen {
				return chunk, nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			chunk.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			seen = true
		case strings.HasPrefix(line, "id:"):
			chunk.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			seen = true
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if seen && chunk.Data != "" {
				chunk.Data += "\n" + data
			} else {
				chunk.Data = data
			}
			seen = true
		}
	}

	if err := d.scanner.Err(); err != nil {
		return Chunk{}, err
	}
	if seen {
		// Stream ended without the trailing blank line.
		return chunk, nil
	}
	return Chunk{}, io.EOF
}

// DecodeAll drains the stream into a slice of chunks.
func DecodeAll(r io.Reader) ([]Chunk, error) {
	dec := NewDecoder(r)
	var chunks []Chunk
	for {
		chunk, err := dec.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
}
