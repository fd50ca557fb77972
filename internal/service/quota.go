package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"likesync/internal/domain"
)

// QuotaTracker enforces a per-identity daily usage limit.
//
// CheckEligibility and RecordUsage are separate so a failed action is never
// charged. Two concurrent requests for the same identity can both pass the
// check before either records, so the limit can be overrun by the number of
// in-flight requests.
type QuotaTracker struct {
	store    UsageStore
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewQuotaTracker(store UsageStore, location *time.Location, logger *slog.Logger) *QuotaTracker {
	if location == nil {
		location = time.UTC
	}
	return &QuotaTracker{
		store:    store,
		location: location,
		now:      time.Now,
		logger:   logger.With("component", "quota"),
	}
}

// WithClock replaces the time source.
func (q *QuotaTracker) WithClock(now func() time.Time) *QuotaTracker {
	q.now = now
	return q
}

// CheckEligibility reports whether identity may perform one more counted
// action today. It never writes.
func (q *QuotaTracker) CheckEligibility(ctx context.Context, identity string, limit int) (*domain.Eligibility, error) {
	record, err := q.store.Get(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}

	if record != nil && record.IsUnlimitedTier {
		return &domain.Eligibility{CanProceed: true, Remaining: -1, Unlimited: true}, nil
	}

	remaining := max(limit-q.effectiveCount(record), 0)
	return &domain.Eligibility{
		CanProceed: remaining > 0,
		Remaining:  remaining,
	}, nil
}

// RecordUsage counts one action for identity and returns today's count.
func (q *QuotaTracker) RecordUsage(ctx context.Context, identity string) (int, error) {
	record, err := q.store.Get(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("get usage: %w", err)
	}
	if record == nil {
		record = &domain.UsageRecord{Identity: identity}
	}

	today := q.today()
	if record.LastCountedDate == nil || record.LastCountedDate.Before(today) {
		record.DailyCount = 1
	} else {
		record.DailyCount++
	}
	record.LastCountedDate = &today

	if err := q.store.Save(ctx, record); err != nil {
		return 0, fmt.Errorf("save usage: %w", err)
	}

	q.logger.Debug("recorded usage", "identity", identity, "daily_count", record.DailyCount)
	return record.DailyCount, nil
}

// effectiveCount is the stored count if it belongs to today, 0 otherwise.
func (q *QuotaTracker) effectiveCount(record *domain.UsageRecord) int {
	if record == nil || record.LastCountedDate == nil {
		return 0
	}
	if record.LastCountedDate.Before(q.today()) {
		return 0
	}
	return record.DailyCount
}

// today is midnight of the current calendar day, expressed in UTC so it
// compares cleanly with DATE columns.
func (q *QuotaTracker) today() time.Time {
	y, m, d := q.now().In(q.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
