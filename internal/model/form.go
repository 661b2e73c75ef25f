package model

import (
	"encoding/json"
	"strings"
)

// Form is a form definition as returned by forms.list. One form yields one
// response-list stream and one response-detail stream.
type Form struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Field is one typed slot within a form's schema, as returned by forms.info.
// Settings carry free-form metadata (input type, list style, defaults) that
// drives schema inference.
type Field struct {
	ID       ID             `json:"id"`
	Title    string         `json:"title"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
}

// InputType returns settings.inputtype, or "" when absent.
func (f Field) InputType() string {
	s, _ := f.Settings["inputtype"].(string)
	return s
}

// Style returns settings.style, or "" when absent.
func (f Field) Style() string {
	s, _ := f.Settings["style"].(string)
	return s
}

// Multiple reports whether settings.multiple is truthy.
func (f Field) Multiple() bool {
	switch v := f.Settings["multiple"].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != "" && v != "false" && v != "0"
	}
	return false
}

// BoolDefault reports whether settings.defaulted is present as a boolean.
func (f Field) BoolDefault() bool {
	_, ok := f.Settings["defaulted"].(bool)
	return ok
}

// ID is an opaque identifier that the API serializes as either a JSON string
// or a JSON number, depending on the entity.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*id = ID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}
