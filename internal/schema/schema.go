// Package schema infers a structural schema from per-form field metadata and
// declares the hand-written schemas of the fixed streams.
package schema

import (
	"strings"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// Type classifies a schema property.
type Type string

const (
	String      Type = "string"
	Integer     Type = "integer"
	Boolean     Type = "boolean"
	DateTime    Type = "datetime"
	Object      Type = "object"
	Email       Type = "email"
	StringArray Type = "string_array"
	// ObjectArray holds items that may be objects or plain strings
	// (sketches, attachments).
	ObjectArray Type = "object_array"
)

// Property is one named, typed schema slot. Order is preserved from the
// field metadata.
type Property struct {
	Title string
	Type  Type
}

// Schema is the declared shape of a stream's records.
type Schema struct {
	properties []Property
	types      map[string]Type
}

// New builds a schema from an ordered property list.
func New(properties ...Property) *Schema {
	s := &Schema{
		properties: properties,
		types:      make(map[string]Type, len(properties)),
	}
	for _, p := range properties {
		s.types[p.Title] = p.Type
	}
	return s
}

// Properties returns the ordered property list.
func (s *Schema) Properties() []Property { return s.properties }

// Type returns the declared type for a property title.
func (s *Schema) Type(title string) (Type, bool) {
	t, ok := s.types[title]
	return t, ok
}

// Resolution maps a field ID to the title its values are emitted under.
// Titles are unique within a form: a colliding field is bound under
// "<title>_<id>" instead.
type Resolution map[string]string

// Title resolves a field ID; ok is false for fields absent from the current
// metadata snapshot (schema drift).
func (r Resolution) Title(fieldID string) (string, bool) {
	title, ok := r[fieldID]
	return title, ok
}

// Fixed metadata properties present in every detail schema.
const (
	FieldID      = "kpa_id"
	FieldCreated = "kpa_created"
	FieldUpdated = "kpa_updated"
)

// TypeForField maps field metadata to a schema type. Rules apply in order,
// first match wins. A "switch" input with a boolean default is treated as
// boolean, matching the checkbox rule's extended variant.
func TypeForField(f model.Field) Type {
	if f.InputType() == "checkbox" || (f.InputType() == "switch" && f.BoolDefault()) {
		return Boolean
	}
	if f.Style() == "list" && f.Multiple() {
		return StringArray
	}
	switch f.Type {
	case "datetime":
		return DateTime
	case "counter":
		return Integer
	case "sketch", "attachments":
		return ObjectArray
	}
	return String
}

// Infer derives a form's schema and field-name resolution from its field
// metadata in a single pass, so the two always agree. The three fixed
// metadata properties lead the schema and do not take part in collision
// handling.
func Infer(fields []model.Field) (*Schema, Resolution) {
	properties := []Property{
		{Title: FieldID, Type: Integer},
		{Title: FieldCreated, Type: DateTime},
		{Title: FieldUpdated, Type: DateTime},
	}

	resolution := make(Resolution, len(fields))
	used := make(map[string]bool, len(fields))
	for _, f := range fields {
		title := strings.TrimSpace(f.Title)
		if used[title] {
			title = title + "_" + f.ID.String()
		}
		used[title] = true
		resolution[f.ID.String()] = title
		properties = append(properties, Property{Title: title, Type: TypeForField(f)})
	}

	return New(properties...), resolution
}

// JSONSchema renders the schema as a JSON Schema object for the catalog.
func (s *Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.properties))
	for _, p := range s.properties {
		properties[p.Title] = p.Type.JSONSchema()
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

// JSONType returns the primary JSON type of the rendered property. Note that
// datetimes are strings on the wire, so they count as string-typed for value
// extraction.
func (t Type) JSONType() string {
	switch t {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Object:
		return "object"
	case StringArray, ObjectArray:
		return "array"
	}
	return "string"
}

// JSONSchema renders one property type. Every property is nullable except
// where the upstream value is always present.
func (t Type) JSONSchema() map[string]any {
	switch t {
	case Boolean:
		return map[string]any{"type": []string{"boolean", "null"}}
	case Integer:
		return map[string]any{"type": []string{"integer", "null"}}
	case DateTime:
		return map[string]any{"type": []string{"string", "null"}, "format": "date-time"}
	case Object:
		return map[string]any{"type": []string{"object", "null"}}
	case Email:
		return map[string]any{"type": []string{"string", "null"}, "format": "email"}
	case StringArray:
		return map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": []string{"string", "null"}},
		}
	case ObjectArray:
		return map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": []string{"object", "string"}},
		}
	}
	return map[string]any{"type": []string{"string", "null"}}
}
