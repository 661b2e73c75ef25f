package emit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/kpatap/internal/model"
	"github.com/alfredjeanlab/kpatap/internal/schema"
)

// Subject prefixes for published envelopes; the stream name is appended.
const (
	SubjectSchema   = "kpa.schema."
	SubjectRecord   = "kpa.record."
	SubjectBookmark = "kpa.bookmark."
)

// NATSEmitter publishes envelopes to NATS subjects, one subject per stream
// and envelope type.
type NATSEmitter struct {
	conn *nats.Conn
}

func NewNATSEmitter(url string) (*NATSEmitter, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSEmitter{conn: nc}, nil
}

func (e *NATSEmitter) publish(subject string, typ, stream string, data any) error {
	payload, err := json.Marshal(envelope{Type: typ, Stream: stream, Emitted: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("marshaling %s envelope: %w", typ, err)
	}
	return e.conn.Publish(subject, payload)
}

func (e *NATSEmitter) Schema(stream string, s *schema.Schema) error {
	return e.publish(SubjectSchema+stream, TypeSchema, stream, s.JSONSchema())
}

func (e *NATSEmitter) Record(stream string, r model.Record) error {
	return e.publish(SubjectRecord+stream, TypeRecord, stream, r)
}

func (e *NATSEmitter) Bookmark(b model.Bookmark) error {
	return e.publish(SubjectBookmark+b.Stream, TypeBookmark, b.Stream, b)
}

// Close flushes pending publishes before dropping the connection.
func (e *NATSEmitter) Close() error {
	if err := e.conn.Flush(); err != nil {
		e.conn.Close()
		return fmt.Errorf("flushing NATS connection: %w", err)
	}
	e.conn.Close()
	return nil
}
