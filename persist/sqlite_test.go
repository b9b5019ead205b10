package persist

import (
	"context"
	"errors"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	travel "go-travel-rates"
	"path/filepath"
	"regexp"
	"testing"
)

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "travelrates.db")

	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)

	_, ok, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, "k", "one"))
	require.NoError(t, b.Set(ctx, "k", "two"))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	require.NoError(t, b.Delete(ctx, "k"))
	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Close())
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "travelrates.db")

	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	s := NewStore(b, log.NewNopLogger())
	require.NoError(t, s.SavePinned(ctx, []travel.Currency{"USD", "JPY"}))
	require.NoError(t, s.Close())

	b, err = NewSQLiteBackend(path)
	require.NoError(t, err)
	s = NewStore(b, log.NewNopLogger())
	defer s.Close()

	assert.Equal(t, []travel.Currency{"USD", "JPY"}, s.Pinned(ctx))
}

func newMockBackend(t *testing.T) (*sqliteBackend, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	b, err := newSQLiteBackend(sqlx.NewDb(db, "sqlmock"))
	require.NoError(t, err)
	return b, mock
}

func TestSQLiteBackend_ReadErrorDegradesToDefault(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs(KeyPinned).
		WillReturnError(errors.New("disk I/O error"))

	s := NewStore(b, log.NewNopLogger())
	assert.Equal(t, travel.DefaultPinned, s.Pinned(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackend_WriteError(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectExec("INSERT INTO kv").
		WithArgs(KeyOverrides, `{"EUR":0.95}`, sqlmock.AnyArg()).
		WillReturnError(errors.New("database is locked"))

	s := NewStore(b, log.NewNopLogger())
	err := s.SaveOverrides(ctx, travel.Rates{"EUR": 0.95})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackend_Upsert(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectExec("INSERT INTO kv .* ON CONFLICT\\(key\\) DO UPDATE").
		WithArgs("k", "v", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, b.Set(ctx, "k", "v"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackend_SavingNoOverridesDeletes(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockBackend(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv WHERE key = ?`)).
		WithArgs(KeyOverrides).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewStore(b, log.NewNopLogger())
	assert.NoError(t, s.SaveOverrides(ctx, travel.Rates{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
