package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapr-cms/shapr/internal/query"
)

func newMockStore(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQL(db), mock
}

func TestSQLFindAll(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectQuery("SELECT id, title, score, created_at, updated_at FROM posts WHERE (score > $1) ORDER BY title ASC LIMIT $2 OFFSET $3").
		WithArgs(float64(5), 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "score", "created_at", "updated_at"}).
			AddRow(int64(2), "beta", 7.0, nil, nil).
			AddRow(int64(3), "gamma", 9.0, nil, nil))

	predicate := &query.PredicateGroup{
		Conditions: []query.Condition{
			{Field: "score", Operator: query.OpGreaterThan, Value: float64(5)},
		},
	}
	docs, err := s.FindAll(context.Background(), posts, Query{
		Predicate: predicate,
		Sort:      []query.SortField{{Field: "title"}},
		Offset:    1,
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "beta", docs[0]["title"])
	assert.Equal(t, int64(3), docs[1]["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFindByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectQuery("SELECT id, title, score, created_at, updated_at FROM posts WHERE id = $1").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "score", "created_at", "updated_at"}))

	_, err := s.FindByID(context.Background(), posts, int64(99))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSaveInserts(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectQuery("INSERT INTO posts (title, score) VALUES ($1, $2) RETURNING id").
		WithArgs("Hi", float64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT id, title, score, created_at, updated_at FROM posts WHERE id = $1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "score", "created_at", "updated_at"}).
			AddRow(int64(1), "Hi", 1.0, nil, nil))

	doc, err := s.Save(context.Background(), posts, Document{"title": "Hi", "score": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSaveUpdates(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectExec("UPDATE posts SET title = $1 WHERE id = $2").
		WithArgs("New", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, title, score, created_at, updated_at FROM posts WHERE id = $1").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "score", "created_at", "updated_at"}).
			AddRow(int64(4), "New", nil, nil, nil))

	doc, err := s.Save(context.Background(), posts, Document{"id": int64(4), "title": "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", doc["title"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDeleteByID(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectExec("DELETE FROM posts WHERE id = $1").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.DeleteByID(context.Background(), posts, int64(1)))

	mock.ExpectExec("DELETE FROM posts WHERE id = $1").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.DeleteByID(context.Background(), posts, int64(2)), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCount(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM posts WHERE (title = $1)").
		WithArgs("Hi").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	predicate := &query.PredicateGroup{
		Conditions: []query.Condition{
			{Field: "title", Operator: query.OpEquals, Value: "Hi"},
		},
	}
	n, err := s.Count(context.Background(), posts, predicate)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExistsByID(t *testing.T) {
	s, mock := newMockStore(t)
	posts := postsCollection(t)

	mock.ExpectQuery("SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.ExistsByID(context.Background(), posts, int64(1))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
