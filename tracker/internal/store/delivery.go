package store

import (
	"context"
	"fmt"
)

// MarkNotified records a delivered notification and stamps the watch's
// last_notified_at in one transaction. Callers invoke this only after the
// notifier reported success; a failed delivery must leave both untouched so
// the next run retries.
func (s *Store) MarkNotified(ctx context.Context, watchID string, rec *NotificationRecord, now int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if rec.ID == "" {
		rec.ID = s.newNotifID()
	}
	rec.SentAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, item_id, kind, message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.ItemID, rec.Kind, rec.Message, rec.SentAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE watches SET last_notified_at = ? WHERE id = ?`, now, watchID)
	if err != nil {
		return fmt.Errorf("stamp watch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("stamp watch: watch %s not found", watchID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListNotifications returns a user's delivery log, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]*NotificationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, item_id, kind, message, sent_at
		FROM notifications WHERE user_id = ?
		ORDER BY sent_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*NotificationRecord
	for rows.Next() {
		var r NotificationRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemID, &r.Kind, &r.Message, &r.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
