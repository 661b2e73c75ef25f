// Package stream composes discovery, schema inference, pagination, and
// normalization into the tap's streams: one list/detail pair per form plus
// the fixed streams.
package stream

import (
	"context"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/kpatap/internal/kpa"
	"github.com/alfredjeanlab/kpatap/internal/model"
)

// Kind states what a stream produces.
type Kind string

const (
	// KindList streams paginated response summaries for a form; its
	// records feed the form's detail stream and carry the replication key.
	KindList Kind = "list"
	// KindDetail streams normalized full records, one single-shot fetch
	// per identifier produced by the parent list stream.
	KindDetail Kind = "detail"
	// KindStatic streams a fixed endpoint with a hand-declared schema.
	KindStatic Kind = "static"
)

// Descriptor is a plain description of one stream. A single generic sync
// implementation is parameterized by descriptors; no types are generated at
// runtime.
type Descriptor struct {
	Name           string   `json:"name"`
	Kind           Kind     `json:"kind"`
	FormID         model.ID `json:"form_id,omitempty"`
	Parent         string   `json:"parent,omitempty"`
	ReplicationKey string   `json:"replication_key,omitempty"`
}

// Fixed stream names.
const (
	StreamRoles           = "roles"
	StreamUsers           = "users"
	StreamLinesOfBusiness = "lines_of_business"
)

var nonWord = regexp.MustCompile(`[^\w]+`)

// streamName sanitizes a form name into a stream name: spaces become
// underscores and any remaining non-word runs are stripped.
func streamName(formName string) string {
	return nonWord.ReplaceAllString(strings.ReplaceAll(formName, " ", "_"), "")
}

// listStreamName returns the name of a form's response-list stream.
func listStreamName(formName string) string {
	return streamName(formName) + "_responses_list"
}

// Discover enumerates every stream: the fixed streams plus one list/detail
// pair per form. A forms.list failure is fatal for the whole run.
func Discover(ctx context.Context, client *kpa.Client) ([]Descriptor, error) {
	descriptors := []Descriptor{
		{Name: StreamRoles, Kind: KindStatic},
		{Name: StreamUsers, Kind: KindStatic},
		{Name: StreamLinesOfBusiness, Kind: KindStatic},
	}

	forms, err := client.ListForms(ctx)
	if err != nil {
		return nil, err
	}
	for _, form := range forms {
		name := streamName(form.Name)
		parent := listStreamName(form.Name)
		descriptors = append(descriptors,
			Descriptor{
				Name:           parent,
				Kind:           KindList,
				FormID:         form.ID,
				ReplicationKey: "updated",
			},
			Descriptor{
				Name:   name,
				Kind:   KindDetail,
				FormID: form.ID,
				Parent: parent,
			},
		)
	}
	return descriptors, nil
}
