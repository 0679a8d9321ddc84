// Package tracker implements a storefront price tracking and notification
// engine: a catalog of items, per-user watches, an append-only price
// ledger and a daily batch run that fetches fresh prices and notifies
// watchers whose target or sale condition is met.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/pricewatch/tracker/internal/schedule"
	"github.com/hazyhaar/pricewatch/tracker/internal/store"
)

// Service orchestrates the catalog, the watch registry, the price ledger
// and the notification pipeline.
type Service struct {
	store    *store.Store
	fetcher  Fetcher
	notifier Notifier
	sched    *schedule.Scheduler
	config   Config
	logger   *slog.Logger

	now func() time.Time

	mu      sync.Mutex
	lastRun RunSummary

	wg sync.WaitGroup
}

// ServiceOption customises Service construction.
type ServiceOption func(*Service)

// WithClock overrides the wall clock. Used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// New creates a Service on an already-open database. The caller owns the
// database handle; apply Schema before calling New (dbopen.WithSchema).
func New(db *sql.DB, fetcher Fetcher, notifier Notifier, cfg Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    store.New(db),
		fetcher:  fetcher,
		notifier: notifier,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.sched = schedule.New(s.runScheduled, schedule.Config{
		Hour:   *cfg.Schedule.Hour,
		Minute: cfg.Schedule.Minute,
	}, logger)
	return s
}

// Start launches the daily schedule loop in the background. It returns
// immediately; cancel ctx and call Close to stop.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sched.Run(ctx)
	}()
}

// Close waits for the background loop to exit. Call after cancelling the
// context passed to Start.
func (s *Service) Close() {
	s.wg.Wait()
}

// Search runs a free-text catalog search on one storefront. Results are
// live snapshots, not stored items.
func (s *Service) Search(ctx context.Context, platform, query string) ([]*ItemSnapshot, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if platform == "" {
		platform = "steam"
	}
	snaps, err := s.fetcher.SearchItems(ctx, platform, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", ErrFetchUnavailable, platform, err)
	}
	return snaps, nil
}

// GetItem returns one stored item.
func (s *Service) GetItem(ctx context.Context, id string) (*Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	return item, nil
}

// GetOrCreateFromSnapshot upserts an item from a snapshot the caller
// already holds (search result, manual entry). Idempotent on
// (platform, url).
func (s *Service) GetOrCreateFromSnapshot(ctx context.Context, snap *ItemSnapshot) (*Item, error) {
	if snap == nil || snap.Title == "" || snap.URL == "" {
		return nil, fmt.Errorf("%w: snapshot needs title and url", ErrInvalidInput)
	}
	if snap.Platform == "" {
		snap.Platform = InferPlatform(snap.URL)
	}
	item, err := s.store.ApplySnapshot(ctx, snap, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("apply snapshot: %w", err)
	}
	return item, nil
}

// ResolveItem returns the stored item for (platform, url), fetching and
// creating it when unseen. ErrNotFound means the storefront answered but
// has no listing at that URL.
func (s *Service) ResolveItem(ctx context.Context, platform, url string) (*Item, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	if platform == "" {
		platform = InferPlatform(url)
	}
	item, err := s.store.GetItemByPlatformURL(ctx, platform, url)
	if err != nil {
		return nil, fmt.Errorf("lookup item: %w", err)
	}
	if item != nil {
		return item, nil
	}

	snap, err := s.fetcher.FetchItemDetails(ctx, platform, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrFetchUnavailable, platform, url, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: no listing at %s", ErrNotFound, url)
	}
	snap.Platform = platform
	snap.URL = url
	return s.GetOrCreateFromSnapshot(ctx, snap)
}

// Refresh fetches the current listing for a stored item and applies it.
// A fetch error leaves the stored state untouched; a storefront answer
// of "no listing" returns the item unchanged.
func (s *Service) Refresh(ctx context.Context, itemID string) (*Item, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	snap, err := s.fetcher.FetchItemDetails(ctx, item.Platform, item.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrFetchUnavailable, item.Platform, item.URL, err)
	}
	if snap == nil {
		return item, nil
	}
	snap.Platform = item.Platform
	snap.URL = item.URL

	fresh, err := s.store.ApplySnapshot(ctx, snap, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("apply snapshot: %w", err)
	}
	return fresh, nil
}

// Track subscribes a user to an item. The user is created on first sight;
// the item must already exist. Re-tracking updates targetPrice and
// notifyOnAnySale in place (last write wins).
func (s *Service) Track(ctx context.Context, externalID, username, itemID string, targetPrice *float64, notifyOnAnySale bool) (*Watch, error) {
	if externalID == "" || itemID == "" {
		return nil, fmt.Errorf("%w: externalID and itemID required", ErrInvalidInput)
	}
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.UpsertUser(ctx, externalID, username)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	watch, err := s.store.UpsertWatch(ctx, user.ID, item.ID, targetPrice, notifyOnAnySale)
	if err != nil {
		return nil, fmt.Errorf("upsert watch: %w", err)
	}
	s.logger.Info("tracker: watch upserted",
		"user", user.ID, "item", item.ID, "target", targetPrice, "any_sale", notifyOnAnySale)
	return watch, nil
}

// Untrack removes a user's watch on an item. Returns false when there was
// nothing to remove; that is not an error.
func (s *Service) Untrack(ctx context.Context, externalID, itemID string) (bool, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return false, nil
	}
	removed, err := s.store.DeleteWatch(ctx, user.ID, itemID)
	if err != nil {
		return false, fmt.Errorf("delete watch: %w", err)
	}
	return removed, nil
}

// ListForUser returns a user's watches with items attached. An unknown
// user has no watches.
func (s *Service) ListForUser(ctx context.Context, externalID string) ([]*Watch, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return []*Watch{}, nil
	}
	watches, err := s.store.ListWatchesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	return watches, nil
}

// ListAll returns every watch with user and item attached. This is the
// batch run's feed.
func (s *Service) ListAll(ctx context.Context) ([]*Watch, error) {
	watches, err := s.store.ListAllWatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all watches: %w", err)
	}
	return watches, nil
}

// PriceHistory returns an item's recent price observations, newest first.
// limit <= 0 uses the default of 30.
func (s *Service) PriceHistory(ctx context.Context, itemID string, limit int) ([]*PriceObservation, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	obs, err := s.store.ListObservations(ctx, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return obs, nil
}

// NotificationHistory returns a user's recent delivery log, newest first.
// limit <= 0 uses the default of 20.
func (s *Service) NotificationHistory(ctx context.Context, externalID string, limit int) ([]*NotificationRecord, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return []*NotificationRecord{}, nil
	}
	recs, err := s.store.ListNotifications(ctx, user.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return recs, nil
}

// RunOnce triggers one batch run immediately, sharing the non-reentrancy
// guard with the daily schedule. An overlapping request gets
// ErrRunInProgress.
func (s *Service) RunOnce(ctx context.Context) (RunSummary, error) {
	if err := s.sched.TryRun(ctx); err != nil {
		if errors.Is(err, schedule.ErrRunInProgress) {
			return RunSummary{}, ErrRunInProgress
		}
		return RunSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, nil
}

// NextRun reports when the daily schedule will fire next.
func (s *Service) NextRun() time.Time {
	return s.sched.NextRun(s.now())
}
