package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"likesync/internal/domain"
)

// ExportService drains a collection and hands the result to a publisher.
type ExportService struct {
	sync      *SyncService
	publisher Publisher
	logger    *slog.Logger
}

func NewExportService(sync *SyncService, publisher Publisher, logger *slog.Logger) *ExportService {
	return &ExportService{
		sync:      sync,
		publisher: publisher,
		logger:    logger.With("component", "export", "identity", sync.Identity()),
	}
}

// Export drains the collection and publishes it when a publisher is set.
func (e *ExportService) Export(ctx context.Context) (*domain.DrainResult, error) {
	result, err := e.sync.DrainAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishExport(ctx, e.sync.Identity(), result); err != nil {
			return result, fmt.Errorf("publish export: %w", err)
		}
	}
	return result, nil
}

// Sync runs one export and reports statistics, for the scheduler.
func (e *ExportService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()

	result, err := e.Export(ctx)
	if result == nil {
		return nil, err
	}

	stats := &domain.SyncStats{
		Identity:           e.sync.Identity(),
		Fetched:            len(result.Items),
		Pages:              result.Pages,
		TotalCount:         result.TotalCount,
		SafetyLimitReached: result.SafetyLimitReached,
		Published:          e.publisher != nil && err == nil,
		Duration:           time.Since(startTime),
	}

	e.logger.Info("export completed",
		"fetched", stats.Fetched,
		"pages", stats.Pages,
		"total", stats.TotalCount,
		"safety_limit_reached", stats.SafetyLimitReached,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, err
}

// RemoveItems removes a batch and announces the outcome.
func (e *ExportService) RemoveItems(ctx context.Context, ids []string) (*domain.RemovalReport, error) {
	report, err := e.sync.RemoveItems(ctx, ids)
	if err != nil {
		return report, err
	}

	if e.publisher != nil && len(report.Succeeded) > 0 {
		if err := e.publisher.PublishRemoval(ctx, e.sync.Identity(), report); err != nil {
			e.logger.Warn("failed to publish removal", "error", err)
		}
	}
	return report, nil
}
