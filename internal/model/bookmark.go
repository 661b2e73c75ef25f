package model

// Bookmark is the persisted replication high-water mark for a stream: the
// maximum updated timestamp (epoch milliseconds) observed across all summaries
// emitted in a run. The next run uses it as the lower time bound.
type Bookmark struct {
	Stream string `json:"stream"`
	Value  int64  `json:"value"`
}

// Advance returns a bookmark holding the larger of the current value and ms.
func (b Bookmark) Advance(ms int64) Bookmark {
	if ms > b.Value {
		b.Value = ms
	}
	return b
}
