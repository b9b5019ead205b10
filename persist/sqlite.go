package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// sqliteBackend stores values in a single kv table
type sqliteBackend struct {
	db *sqlx.DB

	// now stamps updated_at
	now func() time.Time
}

// NewSQLiteBackend opens (creating if needed) the SQLite database at path
func NewSQLiteBackend(path string) (Backend, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite [%v]: %w", path, err)
	}
	// ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	b, err := newSQLiteBackend(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func newSQLiteBackend(db *sqlx.DB) (*sqliteBackend, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating kv table: %w", err)
	}
	return &sqliteBackend{
		db:  db,
		now: time.Now,
	}, nil
}

func (b *sqliteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get [%v]: %w", key, err)
	}
	return value, true, nil
}

func (b *sqliteBackend) Set(ctx context.Context, key string, value string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, b.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set [%v]: %w", key, err)
	}
	return nil
}

func (b *sqliteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete [%v]: %w", key, err)
	}
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
