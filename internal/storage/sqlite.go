package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore persists values in a single-table sqlite database so sessions
// survive process restarts.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS widget_kv (
			key           TEXT PRIMARY KEY,
			value         TEXT NOT NULL,
			updated_at_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "sqlite store: migrate")
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrUnavailable
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM widget_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "sqlite store: get")
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO widget_kv (key, value, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at_ms = excluded.updated_at_ms
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite store: set")
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM widget_kv WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "sqlite store: remove")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
