// Package record flattens nested detail payloads into normalized records
// matching a form's inferred schema, deduplicating by record identifier.
package record

import (
	"sort"

	"github.com/alfredjeanlab/kpatap/internal/model"
	"github.com/alfredjeanlab/kpatap/internal/schema"
)

// Seen tracks record identifiers already normalized within one sync run.
// It is private to a single form stream and discarded when the run ends.
type Seen map[int64]struct{}

// NewSeen returns an empty dedup set.
func NewSeen() Seen { return make(Seen) }

// Add records id and reports whether it was new.
func (s Seen) Add(id int64) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Normalize flattens one detail payload into a record shaped by the form's
// schema and field-name resolution. A duplicate identifier yields (nil,
// false) and the payload is dropped. Values for fields absent from the
// resolution are skipped silently: the field existed when the record was
// written but is gone from the current metadata snapshot.
func Normalize(detail *model.ResponseDetail, s *schema.Schema, resolution schema.Resolution, seen Seen) (model.Record, bool) {
	if !seen.Add(detail.ID) {
		return nil, false
	}

	out := model.Record{
		schema.FieldID:      detail.ID,
		schema.FieldCreated: model.TimeFromMillis(detail.Created),
		schema.FieldUpdated: model.TimeFromMillis(detail.Updated),
	}

	for fieldID, container := range detail.Latest.Responses {
		title, ok := resolution.Title(fieldID)
		if !ok {
			continue
		}
		value, ok := flatten(container.Value, s, title)
		if !ok {
			continue
		}
		out[title] = value
	}
	return out, true
}

// flatten extracts a scalar or array from a value container. Precedence:
// a non-empty values list feeds string-typed fields their first element;
// attachments pass through verbatim; utc_time becomes a UTC timestamp;
// anything else yields the value under the container's remaining key.
func flatten(value map[string]any, s *schema.Schema, title string) (any, bool) {
	if len(value) == 0 {
		return nil, false
	}

	if values, ok := value["values"].([]any); ok && len(values) > 0 {
		if t, ok := s.Type(title); ok && t.JSONType() == "string" {
			return values[0], true
		}
	}
	if attachments, ok := value["attachments"].([]any); ok && len(attachments) > 0 {
		return attachments, true
	}
	if ms, ok := value["utc_time"].(float64); ok && ms != 0 {
		return model.TimeFromMillis(int64(ms)), true
	}
	return firstValue(value), true
}

// firstValue returns the value under the container's first key. The wire
// format leaves a single-key object here; key order is made deterministic
// for the multi-key case the API does not promise never to send.
func firstValue(value map[string]any) any {
	if v, ok := value["values"]; ok {
		return v
	}
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return value[keys[0]]
}
