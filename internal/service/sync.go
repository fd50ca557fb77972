package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"likesync/internal/config"
	"likesync/internal/domain"
)

// DefaultDrainLimit caps a drain run against collections that never end.
const DefaultDrainLimit = 1000

const (
	keyItems  = "items"
	keyCursor = "cursor"
	keyTotal  = "total"
)

// SyncService keeps one identity's cached copy of its remote collection.
// Calls are expected to be serialized by the caller; nothing here guards
// against two operations interleaving on the same identity.
type SyncService struct {
	lister     CollectionLister
	cache      LocalCache
	identity   string
	drainLimit int
	logger     *slog.Logger
}

func NewSyncService(
	lister CollectionLister,
	cache LocalCache,
	identity string,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	limit := cfg.DrainLimit
	if limit <= 0 {
		limit = DefaultDrainLimit
	}
	return &SyncService{
		lister:     lister,
		cache:      cache,
		identity:   identity,
		drainLimit: limit,
		logger:     logger.With("identity", identity),
	}
}

func (s *SyncService) Identity() string {
	return s.identity
}

// SyncFirstPage fetches the first page and replaces the cached snapshot
// with it.
func (s *SyncService) SyncFirstPage(ctx context.Context) (*domain.PageResult, error) {
	page, err := s.lister.ListPage(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("sync first page: %w", err)
	}

	snap := &domain.Snapshot{
		Items:            slices.Clone(page.Items),
		ResumeCursor:     page.NextCursor,
		TotalRemoteCount: remoteTotal(page, len(page.Items)),
	}
	if err := s.save(ctx, snap); err != nil {
		return nil, fmt.Errorf("sync first page: %w", err)
	}

	s.logger.Info("synced first page",
		"strategy", page.Strategy,
		"count", len(page.Items),
		"total", snap.TotalRemoteCount,
		"has_more", page.NextCursor != "",
	)

	return &domain.PageResult{
		Items:      page.Items,
		Count:      len(page.Items),
		NextCursor: page.NextCursor,
		TotalCount: snap.TotalRemoteCount,
		Empty:      len(page.Items) == 0 && page.NextCursor == "",
	}, nil
}

// SyncNextPage fetches the page after cursor and appends it to the cached
// snapshot. Items are concatenated as returned; pages of one run are
// trusted not to overlap.
func (s *SyncService) SyncNextPage(ctx context.Context, cursor string) (*domain.PageResult, error) {
	if cursor == "" {
		return nil, fmt.Errorf("sync next page: %w: no cursor to resume from", domain.ErrInvalidArgument)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync next page: %w", err)
	}

	page, err := s.lister.ListPage(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("sync next page: %w", err)
	}

	snap.Items = append(snap.Items, page.Items...)
	snap.ResumeCursor = page.NextCursor
	snap.TotalRemoteCount = remoteTotal(page, len(snap.Items))

	if err := s.save(ctx, snap); err != nil {
		return nil, fmt.Errorf("sync next page: %w", err)
	}

	s.logger.Debug("synced next page",
		"strategy", page.Strategy,
		"count", len(page.Items),
		"merged", len(snap.Items),
		"total", snap.TotalRemoteCount,
	)

	return &domain.PageResult{
		Items:      page.Items,
		Count:      len(page.Items),
		NextCursor: page.NextCursor,
		TotalCount: snap.TotalRemoteCount,
		Merged:     snap.Items,
	}, nil
}

// DrainAll walks every page from the start until the collection ends or
// the drain limit is reached. Any failing page aborts the run.
func (s *SyncService) DrainAll(ctx context.Context) (*domain.DrainResult, error) {
	startTime := time.Now()

	first, err := s.SyncFirstPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("drain: %w", err)
	}

	accumulated := slices.Clone(first.Items)
	cursor := first.NextCursor
	total := first.TotalCount
	pages := 1

	for cursor != "" && len(accumulated) < s.drainLimit {
		next, err := s.SyncNextPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("drain page %d: %w", pages+1, err)
		}
		accumulated = append(accumulated, next.Items...)
		cursor = next.NextCursor
		total = next.TotalCount
		pages++
	}

	limitReached := len(accumulated) >= s.drainLimit && (cursor != "" || len(accumulated) > s.drainLimit)
	if len(accumulated) > s.drainLimit {
		accumulated = accumulated[:s.drainLimit]
	}

	result := &domain.DrainResult{
		Items:              accumulated,
		TotalCount:         total,
		Pages:              pages,
		Completeness:       completeness(len(accumulated), total),
		SafetyLimitReached: limitReached,
		ResumeCursor:       cursor,
	}

	if limitReached {
		s.logger.Warn("drain stopped at safety limit",
			"limit", s.drainLimit,
			"total", total,
		)
	}
	s.logger.Info("drain completed",
		"items", len(accumulated),
		"pages", pages,
		"completeness", result.Completeness,
		"duration", time.Since(startTime),
	)

	return result, nil
}

// RemoveItem unlikes id remotely and, only once that succeeded, drops it
// from the cached snapshot.
func (s *SyncService) RemoveItem(ctx context.Context, id string) (*domain.Snapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("remove item: %w: empty id", domain.ErrInvalidArgument)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}

	if err := s.lister.RemoveItem(ctx, id); err != nil {
		return nil, fmt.Errorf("remove item %s: %w", id, err)
	}

	dropItems(snap, []string{id})
	if err := s.save(ctx, snap); err != nil {
		return nil, fmt.Errorf("item %s removed remotely but cache update failed: %w", id, err)
	}

	s.logger.Info("removed item", "id", id, "total", snap.TotalRemoteCount)
	return snap, nil
}

// RemoveItems removes each id independently and persists the snapshot
// once. Failed ids are listed in the report rather than returned.
func (s *SyncService) RemoveItems(ctx context.Context, ids []string) (*domain.RemovalReport, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("remove items: %w: no ids", domain.ErrInvalidArgument)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("remove items: %w", err)
	}

	report := &domain.RemovalReport{
		Succeeded: []string{},
		Failures:  make(map[string]string),
	}
	for _, id := range ids {
		if err := s.lister.RemoveItem(ctx, id); err != nil {
			s.logger.Warn("failed to remove item", "id", id, "error", err)
			report.Failures[id] = err.Error()
			continue
		}
		report.Succeeded = append(report.Succeeded, id)
	}

	dropItems(snap, report.Succeeded)
	report.Remaining = snap.TotalRemoteCount

	if err := s.save(ctx, snap); err != nil {
		return report, fmt.Errorf("%d items removed remotely but cache update failed: %w", len(report.Succeeded), err)
	}

	s.logger.Info("removed items",
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failures),
	)
	return report, nil
}

// View returns the cached items in a presentation order. The stored order
// is never changed.
func (s *SyncService) View(ctx context.Context, order domain.Order) ([]domain.CollectionItem, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("%w: unknown order %q", domain.ErrInvalidArgument, order)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	items := slices.Clone(snap.Items)
	switch order {
	case domain.OrderOldest:
		slices.Reverse(items)
	case domain.OrderMostViewed:
		slices.SortStableFunc(items, func(a, b domain.CollectionItem) int {
			return cmp.Compare(b.Views, a.Views)
		})
	case domain.OrderMostLiked:
		slices.SortStableFunc(items, func(a, b domain.CollectionItem) int {
			return cmp.Compare(b.Likes, a.Likes)
		})
	}
	return items, nil
}

// Reset clears the cached snapshot.
func (s *SyncService) Reset(ctx context.Context) error {
	if err := s.save(ctx, &domain.Snapshot{}); err != nil {
		return fmt.Errorf("reset snapshot: %w", err)
	}
	return nil
}

// Snapshot reads the persisted snapshot; an identity without one gets an
// empty snapshot.
func (s *SyncService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	values, err := s.cache.Get(ctx, []string{s.key(keyItems), s.key(keyCursor), s.key(keyTotal)})
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &domain.Snapshot{Items: []domain.CollectionItem{}}
	if raw, ok := values[s.key(keyItems)]; ok {
		if err := json.Unmarshal(raw, &snap.Items); err != nil {
			return nil, fmt.Errorf("decode cached items: %w", err)
		}
	}
	if raw, ok := values[s.key(keyCursor)]; ok {
		if err := json.Unmarshal(raw, &snap.ResumeCursor); err != nil {
			return nil, fmt.Errorf("decode cached cursor: %w", err)
		}
	}
	if raw, ok := values[s.key(keyTotal)]; ok {
		if err := json.Unmarshal(raw, &snap.TotalRemoteCount); err != nil {
			return nil, fmt.Errorf("decode cached total: %w", err)
		}
	}
	return snap, nil
}

func (s *SyncService) save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.Items == nil {
		snap.Items = []domain.CollectionItem{}
	}

	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	cursor, err := json.Marshal(snap.ResumeCursor)
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	total, err := json.Marshal(snap.TotalRemoteCount)
	if err != nil {
		return fmt.Errorf("encode total: %w", err)
	}

	err = s.cache.Set(ctx, map[string][]byte{
		s.key(keyItems):  items,
		s.key(keyCursor): cursor,
		s.key(keyTotal):  total,
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *SyncService) key(name string) string {
	return s.identity + "/" + name
}

// remoteTotal prefers the count reported by the remote API and falls back
// to the number of items seen so far.
func remoteTotal(page *domain.Page, seen int) int {
	if page.TotalCount > 0 {
		return page.TotalCount
	}
	return seen
}

func completeness(accumulated, total int) float64 {
	if total <= 0 {
		return 1
	}
	ratio := float64(accumulated) / float64(total)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// dropItems removes ids from the snapshot and lowers the remote total by
// one per id, never below zero.
func dropItems(snap *domain.Snapshot, ids []string) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	snap.Items = slices.DeleteFunc(snap.Items, func(item domain.CollectionItem) bool {
		return gone[item.ID]
	})
	snap.TotalRemoteCount = max(snap.TotalRemoteCount-len(ids), 0)
}
