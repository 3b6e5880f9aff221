// Package sqlkv stores key/value entries in the kv_entries table of a SQL database.
package sqlkv

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

// Entry describes a stored key, without its value.
type Entry struct {
	Key       string    `db:"key"`
	Size      int       `db:"size"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"` // null until the first overwrite
}

// Store is a core.KeyValueStore over sqlx. The kv_entries table is created by the
// migrations of storage/database.
type Store struct {
	db *sqlx.DB
}

var _ core.KeyValueStore = (*Store)(nil) // interface compliance check

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	q := s.db.Rebind("SELECT value FROM kv_entries WHERE key = ?")
	if err := s.db.GetContext(ctx, &value, q, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrKeyNotFound
		}
		return nil, errors.Wrapf(err, "reading key %s", key)
	}
	return []byte(value), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	q := s.db.Rebind(`
		INSERT INTO kv_entries (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`)
	if _, err := s.db.ExecContext(ctx, q, key, string(value)); err != nil {
		return errors.Wrapf(err, "writing key %s", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM kv_entries WHERE key = ?"), key)
	if err != nil {
		return errors.Wrapf(err, "deleting key %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting key %s", key)
	}
	if n == 0 {
		return core.ErrKeyNotFound
	}
	return nil
}

// Entries lists the stored keys, sorted.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	q := "SELECT key, LENGTH(value) AS size, created_at, updated_at FROM kv_entries ORDER BY key"
	if err := s.db.SelectContext(ctx, &entries, q); err != nil {
		return nil, errors.Wrap(err, "listing entries")
	}
	return entries, nil
}
