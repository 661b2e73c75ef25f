package stream

import (
	"context"

	"github.com/alfredjeanlab/kpatap/internal/schema"
)

// Mode states why the catalog is being built. It is passed explicitly by the
// caller, never inferred from the execution context.
type Mode string

const (
	// ModeDiscovery builds the user-facing catalog: list streams are
	// internal plumbing and are hidden.
	ModeDiscovery Mode = "discovery"
	// ModeSync keeps every stream, list parents included.
	ModeSync Mode = "sync"
)

// CatalogEntry is one discovered stream with its declared schema.
type CatalogEntry struct {
	Stream         string         `json:"stream"`
	Kind           Kind           `json:"kind"`
	ReplicationKey string         `json:"replication_key,omitempty"`
	Schema         map[string]any `json:"schema"`
}

// Catalog resolves the schema of every descriptor. Detail schemas are
// inferred from field metadata through the memoized per-form cache; a form
// whose field discovery fails is dropped from the catalog (with its list
// parent) and reported in the returned names, leaving other forms intact.
func (s *Syncer) Catalog(ctx context.Context, descriptors []Descriptor, mode Mode) ([]CatalogEntry, []string, error) {
	var entries []CatalogEntry
	var failed []string

	brokenForms := make(map[string]bool)
	for _, d := range descriptors {
		if d.Kind != KindDetail {
			continue
		}
		if _, err := s.formSchema(ctx, d.FormID); err != nil {
			if ctx.Err() != nil {
				return nil, nil, err
			}
			s.logger.Error("field discovery failed", "stream", d.Name, "form_id", d.FormID, "error", err)
			brokenForms[d.FormID.String()] = true
			failed = append(failed, d.Name)
		}
	}

	for _, d := range descriptors {
		switch d.Kind {
		case KindStatic:
			declared, _ := staticStream(d.Name)
			entries = append(entries, CatalogEntry{
				Stream: d.Name,
				Kind:   d.Kind,
				Schema: declared.JSONSchema(),
			})
		case KindList:
			if mode == ModeDiscovery || brokenForms[d.FormID.String()] {
				continue
			}
			entries = append(entries, CatalogEntry{
				Stream:         d.Name,
				Kind:           d.Kind,
				ReplicationKey: d.ReplicationKey,
				Schema:         schema.ResponseList().JSONSchema(),
			})
		case KindDetail:
			if brokenForms[d.FormID.String()] {
				continue
			}
			fs := s.forms[d.FormID]
			entries = append(entries, CatalogEntry{
				Stream: d.Name,
				Kind:   d.Kind,
				Schema: fs.schema.JSONSchema(),
			})
		}
	}
	return entries, failed, nil
}
