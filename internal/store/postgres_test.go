package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlens/careers-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresStore(mock, 384, nil), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS careers`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS careers`).
		WillReturnError(errors.New("permission denied"))

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: migrate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceCareers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM careers`).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"careers"}, careerColumns).
		WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceCareers(context.Background(), testCareers()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceCareersRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM careers`).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"careers"}, careerColumns).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	err := s.ReplaceCareers(context.Background(), testCareers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy careers")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCareers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	docs := pgxmock.NewRows([]string{"doc"})
	for _, c := range testCareers() {
		b, err := json.Marshal(c)
		require.NoError(t, err)
		docs.AddRow(b)
	}
	mock.ExpectQuery(`SELECT doc FROM careers ORDER BY position`).WillReturnRows(docs)

	got, err := s.ListCareers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "registered-nurses", got[0].Slug)
	assert.Equal(t, "software-developers", got[1].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedQuery_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT key, results, created_at, expires_at FROM query_cache WHERE key = \$1`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	q, err := s.GetCachedQuery(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedQuery(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT key, results, created_at, expires_at FROM query_cache`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows([]string{"key", "results", "created_at", "expires_at"}).
			AddRow("abc", []byte(`[{"slug":"registered-nurses","similarity":0.9}]`), created, created.Add(24*time.Hour)))

	q, err := s.GetCachedQuery(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, q)
	require.Len(t, q.Results, 1)
	assert.Equal(t, "registered-nurses", q.Results[0].Slug)
	assert.Equal(t, created.Add(24*time.Hour), q.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedQuery_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT key, results`).
		WithArgs("abc").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetCachedQuery(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get cached query")
}

func TestPostgresStore_SetCachedQuery(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO query_cache .* ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("abc", []byte(`[]`), now, now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedQuery(context.Background(), model.CachedQuery{
		Key: "abc", Results: []model.RankedCareer{}, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredQueries(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM query_cache WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteExpiredQueries(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IndexIsPgvector(t *testing.T) {
	s, _ := newMockPostgresStore(t)
	assert.Same(t, s.index, s.Index())
}

func TestPostgresStore_CloseWithoutPool(t *testing.T) {
	s := &PostgresStore{}
	assert.NoError(t, s.Close())
}
