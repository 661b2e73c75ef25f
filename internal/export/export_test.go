package export

import (
	"context"
	"strings"
	"testing"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// memDestination collects writes in memory.
type memDestination struct {
	data []byte
}

func (d *memDestination) Write(ctx context.Context, data []byte) error {
	d.data = append([]byte(nil), data...)
	return nil
}

func TestCapture_Upload(t *testing.T) {
	c := NewCapture()
	if c.Len() != 0 {
		t.Fatalf("fresh capture has %d bytes", c.Len())
	}

	if err := c.Record("safety", model.Record{"kpa_id": 9}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := c.Bookmark(model.Bookmark{Stream: "safety_responses_list", Value: 1}); err != nil {
		t.Fatalf("Bookmark: %v", err)
	}

	dest := &memDestination{}
	if err := c.Upload(context.Background(), dest); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(dest.data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("uploaded lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"type":"record"`) {
		t.Errorf("line 0 = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"type":"bookmark"`) {
		t.Errorf("line 1 = %s", lines[1])
	}
}
