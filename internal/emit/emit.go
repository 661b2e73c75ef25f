// Package emit delivers stream schemas, normalized records, and bookmarks to
// the configured outputs as line-delimited JSON envelopes.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alfredjeanlab/kpatap/internal/model"
	"github.com/alfredjeanlab/kpatap/internal/schema"
)

// Envelope types.
const (
	TypeSchema   = "schema"
	TypeRecord   = "record"
	TypeBookmark = "bookmark"
)

// Emitter receives a stream's declared schema, its records, and the final
// bookmark. Implementations must tolerate interleaved streams.
type Emitter interface {
	Schema(stream string, s *schema.Schema) error
	Record(stream string, r model.Record) error
	Bookmark(b model.Bookmark) error
	Close() error
}

// envelope wraps a single output line with a type discriminator.
type envelope struct {
	Type    string    `json:"type"`
	Stream  string    `json:"stream,omitempty"`
	Emitted time.Time `json:"emitted"`
	Data    any       `json:"data"`
}

// Writer emits envelopes as JSONL to an io.Writer (stdout in normal runs).
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter creates a JSONL emitter writing to w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

func (w *Writer) emit(typ, stream string, data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(envelope{Type: typ, Stream: stream, Emitted: time.Now().UTC(), Data: data}); err != nil {
		return fmt.Errorf("encoding %s envelope: %w", typ, err)
	}
	return nil
}

func (w *Writer) Schema(stream string, s *schema.Schema) error {
	return w.emit(TypeSchema, stream, s.JSONSchema())
}

func (w *Writer) Record(stream string, r model.Record) error {
	return w.emit(TypeRecord, stream, r)
}

func (w *Writer) Bookmark(b model.Bookmark) error {
	return w.emit(TypeBookmark, b.Stream, b)
}

func (w *Writer) Close() error { return nil }

// Multi fans every emission out to each emitter in order, stopping at the
// first error.
type Multi []Emitter

func (m Multi) Schema(stream string, s *schema.Schema) error {
	for _, e := range m {
		if err := e.Schema(stream, s); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Record(stream string, r model.Record) error {
	for _, e := range m {
		if err := e.Record(stream, r); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Bookmark(b model.Bookmark) error {
	for _, e := range m {
		if err := e.Bookmark(b); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var firstErr error
	for _, e := range m {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
