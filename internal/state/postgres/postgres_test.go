package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestQueryBookmark(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT value FROM bookmarks WHERE stream = \\$1").
		WithArgs("safety_responses_list").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1700000000000))

	v, ok, err := queryBookmark(context.Background(), db, "safety_responses_list")
	if err != nil {
		t.Fatalf("queryBookmark: %v", err)
	}
	if !ok || v != 1700000000000 {
		t.Errorf("bookmark = %d/%v, want 1700000000000", v, ok)
	}
}

func TestQueryBookmark_Missing(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT value FROM bookmarks WHERE stream = \\$1").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := queryBookmark(context.Background(), db, "unknown")
	if err != nil {
		t.Fatalf("queryBookmark: %v", err)
	}
	if ok {
		t.Error("missing stream must report no bookmark, not an error")
	}
}

func TestQuerySetBookmark(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO bookmarks").
		WithArgs("safety_responses_list", int64(1700000000000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := querySetBookmark(context.Background(), db, model.Bookmark{
		Stream: "safety_responses_list",
		Value:  1700000000000,
	})
	if err != nil {
		t.Fatalf("querySetBookmark: %v", err)
	}
}
