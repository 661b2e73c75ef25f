package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) Bookmark(ctx context.Context, stream string) (int64, bool, error) {
	return queryBookmark(ctx, s.db, stream)
}

func (s *PostgresStore) SetBookmark(ctx context.Context, b model.Bookmark) error {
	return querySetBookmark(ctx, s.db, b)
}

func queryBookmark(ctx context.Context, db executor, stream string) (int64, bool, error) {
	var value int64
	err := db.QueryRowContext(ctx,
		`SELECT value FROM bookmarks WHERE stream = $1`, stream).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func querySetBookmark(ctx context.Context, db executor, b model.Bookmark) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO bookmarks (stream, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (stream) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		b.Stream, b.Value, time.Now().UTC())
	return err
}
