package tracker

import (
	"context"
	"fmt"
	"time"
)

// runScheduled is the function the schedule loop and RunOnce execute
// under the non-reentrancy guard.
func (s *Service) runScheduled(ctx context.Context) error {
	summary, err := s.runBatch(ctx)

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logger.Info("tracker: run complete",
		"checked", summary.Checked, "notified", summary.Notified, "failed", summary.Failed)
	return nil
}

// runBatch walks every watch once: refresh the item, evaluate the watch,
// notify when eligible. A failing watch is logged and skipped; only a
// failure to read the registry aborts the run. Cancellation is honored
// between watches, never mid-watch.
func (s *Service) runBatch(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	watches, err := s.ListAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("run batch: %w", err)
	}
	s.logger.Info("tracker: run started", "watches", len(watches))

	for i, w := range watches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 {
			if err := sleepCtx(ctx, s.config.Schedule.InterWatchDelay); err != nil {
				return summary, err
			}
		}

		notified, err := s.processWatch(ctx, w)
		summary.Checked++
		if err != nil {
			summary.Failed++
			s.logger.Warn("tracker: watch failed",
				"watch", w.ID, "item", w.ItemID, "error", err)
			continue
		}
		if notified {
			summary.Notified++
		}
	}
	return summary, nil
}

// processWatch handles one watch end to end. Returns whether a
// notification went out.
func (s *Service) processWatch(ctx context.Context, w *Watch) (bool, error) {
	if w.User == nil || w.Item == nil {
		return false, fmt.Errorf("watch %s missing user or item", w.ID)
	}

	item, err := s.Refresh(ctx, w.ItemID)
	if err != nil {
		return false, err
	}

	decision := Evaluate(w, item, s.now())
	if !decision.Eligible {
		return false, nil
	}

	message := RenderNotification(w, item)
	if err := s.notifier.Notify(ctx, w.User.ExternalID, message); err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}

	rec := &NotificationRecord{
		UserID:  w.UserID,
		ItemID:  w.ItemID,
		Kind:    decision.Reason,
		Message: message,
	}
	// The message is out; the stamp must land even when the run is being
	// cancelled, or the next run re-notifies inside the cooldown window.
	if err := s.store.MarkNotified(context.WithoutCancel(ctx), w.ID, rec, s.now().UnixMilli()); err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}

	s.logger.Info("tracker: notified",
		"watch", w.ID, "user", w.User.ExternalID, "item", w.ItemID, "kind", decision.Reason)
	return true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
