package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"likesync/internal/domain"
)

type UsageStore struct {
	db *sqlx.DB
}

func NewUsageStore(db *sqlx.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Get returns nil for identities without a usage row.
func (s *UsageStore) Get(ctx context.Context, identity string) (*domain.UsageRecord, error) {
	var record domain.UsageRecord
	query := `
		SELECT identity, is_unlimited_tier, daily_count, last_counted_date
		FROM usage
		WHERE identity = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &record, query, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Save upserts the counter. The unlimited flag is managed out of band and
// is never downgraded here.
func (s *UsageStore) Save(ctx context.Context, record *domain.UsageRecord) error {
	query := `
		INSERT INTO usage (identity, is_unlimited_tier, daily_count, last_counted_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity) DO UPDATE SET
			daily_count = EXCLUDED.daily_count,
			last_counted_date = EXCLUDED.last_counted_date`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		record.Identity,
		record.IsUnlimitedTier,
		record.DailyCount,
		record.LastCountedDate,
	)
	return err
}

// SetUnlimited grants or withdraws the unlimited tier.
func (s *UsageStore) SetUnlimited(ctx context.Context, identity string, unlimited bool) error {
	query := `
		INSERT INTO usage (identity, is_unlimited_tier, daily_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (identity) DO UPDATE SET
			is_unlimited_tier = EXCLUDED.is_unlimited_tier`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, identity, unlimited)
	return err
}
