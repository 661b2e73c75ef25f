// Package state persists per-stream replication bookmarks between runs.
package state

import (
	"context"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// Store is the bookmark persistence interface. Bookmarks are epoch
// milliseconds: the maximum updated value a list stream has observed.
type Store interface {
	// Bookmark returns the persisted value for a stream; ok is false when
	// no bookmark exists yet.
	Bookmark(ctx context.Context, stream string) (value int64, ok bool, err error)

	// SetBookmark upserts a stream's bookmark.
	SetBookmark(ctx context.Context, b model.Bookmark) error

	// Lifecycle
	Close() error
}
