package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CacheStore is a LocalCache backed by the collection_cache table.
type CacheStore struct {
	db *sqlx.DB
	tx *TransactionManager
}

func NewCacheStore(db *sqlx.DB) *CacheStore {
	return &CacheStore{db: db, tx: NewTransactionManager(db)}
}

type cacheRow struct {
	Key   string `db:"cache_key"`
	Value []byte `db:"value"`
}

func (s *CacheStore) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	query := `SELECT cache_key, value FROM collection_cache WHERE cache_key = ANY($1)`

	var rows []cacheRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("select cache keys: %w", err)
	}
	for _, r := range rows {
		result[r.Key] = r.Value
	}
	return result, nil
}

// Set writes all values in one transaction.
func (s *CacheStore) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}

	query := `
		INSERT INTO collection_cache (cache_key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, s.db)
		for key, value := range values {
			if _, err := exec.ExecContext(txCtx, query, key, string(value)); err != nil {
				return fmt.Errorf("upsert cache key %s: %w", key, err)
			}
		}
		return nil
	})
}
