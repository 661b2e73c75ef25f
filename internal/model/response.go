package model

import "time"

// ResponseSummary is one entry from responses.list: just enough to seed a
// detail fetch and advance the replication bookmark.
type ResponseSummary struct {
	ID      int64 `json:"id"`
	Created int64 `json:"created"` // epoch milliseconds
	Updated int64 `json:"updated"` // epoch milliseconds
}

// ResponseDetail is the full record returned by responses.info. Values are
// keyed by field ID and wrapped in a ValueContainer that normalization
// flattens against the form's inferred schema.
type ResponseDetail struct {
	ID      int64 `json:"id"`
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	Latest  struct {
		Responses map[string]ValueContainer `json:"responses"`
	} `json:"latest"`
}

// ValueContainer is the nested per-field payload shape. Value holds one of:
// {values: [string, ...]}, {attachments: [object, ...]}, {utc_time: millis},
// or an arbitrary single-key object whose sole value is the scalar.
type ValueContainer struct {
	Value map[string]any `json:"value"`
}

// Record is a normalized, flat record keyed by resolved field title.
type Record map[string]any

// TimeFromMillis converts an epoch-milliseconds value to a UTC time.
func TimeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
