// Package sqlite keeps the collection cache in a local database file, the
// command-line counterpart of the extension's own storage area.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS collection_cache (
	cache_key  TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type Cache struct {
	db *sqlx.DB
}

// Open opens or creates the cache file at path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

type row struct {
	Key   string `db:"cache_key"`
	Value []byte `db:"value"`
}

func (c *Cache) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := `SELECT cache_key, value FROM collection_cache WHERE cache_key IN (` + placeholders + `)`

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	var rows []row
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select cache keys: %w", err)
	}
	for _, r := range rows {
		result[r.Key] = r.Value
	}
	return result, nil
}

func (c *Cache) Set(ctx context.Context, values map[string][]byte) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	query := `
		INSERT INTO collection_cache (cache_key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (cache_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	for key, value := range values {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert cache key %s: %w", key, err)
		}
	}
	return tx.Commit()
}
