// Package export uploads a run's emitted output to an external destination.
package export

import (
	"bytes"
	"context"

	"github.com/alfredjeanlab/kpatap/internal/emit"
)

// Destination is the interface for an export target (S3, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Capture is an emitter that buffers every envelope as JSONL for a later
// upload. Wire it alongside the primary emitter via emit.Multi.
type Capture struct {
	*emit.Writer
	buf *bytes.Buffer
}

// NewCapture returns an empty capture buffer.
func NewCapture() *Capture {
	buf := &bytes.Buffer{}
	return &Capture{Writer: emit.NewWriter(buf), buf: buf}
}

// Upload sends everything captured so far to dest.
func (c *Capture) Upload(ctx context.Context, dest Destination) error {
	return dest.Write(ctx, c.buf.Bytes())
}

// Len reports the number of buffered bytes.
func (c *Capture) Len() int { return c.buf.Len() }
