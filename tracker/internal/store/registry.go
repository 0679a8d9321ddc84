package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertUser creates a user for an unseen external ID, or refreshes the
// stored username. The conflict clause makes concurrent calls for the
// same external ID converge on one row instead of racing the insert.
func (s *Store) UpsertUser(ctx context.Context, externalID, username string) (*User, error) {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, external_id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			username = excluded.username,
			updated_at = excluded.updated_at`,
		s.newUserID(), externalID, username, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUserByExternalID(ctx, externalID)
}

// GetUserByExternalID retrieves a user by the chat-platform ID.
// Returns (nil, nil) when absent.
func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, external_id, username, created_at, updated_at
		FROM users WHERE external_id = ?`, externalID)
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Username, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UpsertWatch registers (or re-registers) a watch on an item. A second call
// for the same (user, item) updates target price and the sale flag in place:
// last write wins, and never a second row. Concurrent calls converge on the
// same row; created_at and last_notified_at survive re-registration.
func (s *Store) UpsertWatch(ctx context.Context, userID, itemID string, targetPrice *float64, notifyOnAnySale bool) (*Watch, error) {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO watches (id, user_id, item_id, target_price, notify_on_any_sale, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET
			target_price = excluded.target_price,
			notify_on_any_sale = excluded.notify_on_any_sale`,
		s.newWatchID(), userID, itemID, targetPrice, notifyOnAnySale, now)
	if err != nil {
		return nil, fmt.Errorf("upsert watch: %w", err)
	}
	return s.GetWatch(ctx, userID, itemID)
}

// GetWatch retrieves a watch by its (user, item) pair. Returns (nil, nil)
// when absent.
func (s *Store) GetWatch(ctx context.Context, userID, itemID string) (*Watch, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, item_id, target_price, notify_on_any_sale, last_notified_at, created_at
		FROM watches WHERE user_id = ? AND item_id = ?`, userID, itemID)
	return scanWatch(row)
}

// DeleteWatch removes a watch. Returns false (not an error) when the user
// had no such watch.
func (s *Store) DeleteWatch(ctx context.Context, userID, itemID string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM watches WHERE user_id = ? AND item_id = ?`, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("delete watch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListWatchesForUser returns a user's watches with Item eagerly attached.
func (s *Store) ListWatchesForUser(ctx context.Context, userID string) ([]*Watch, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.item_id, w.target_price, w.notify_on_any_sale,
		w.last_notified_at, w.created_at,
		i.id, i.title, i.platform, i.url, i.current_price, i.original_price,
		i.discount_percent, i.on_sale, i.image_url, i.description,
		i.lowest_price, i.lowest_price_at, i.last_checked_at, i.created_at, i.updated_at
		FROM watches w
		JOIN items i ON i.id = w.item_id
		WHERE w.user_id = ?
		ORDER BY w.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWatches(rows, false)
}

// ListAllWatches returns every watch with User and Item eagerly attached.
// This is the batch-processing feed for the scheduler.
func (s *Store) ListAllWatches(ctx context.Context) ([]*Watch, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.item_id, w.target_price, w.notify_on_any_sale,
		w.last_notified_at, w.created_at,
		i.id, i.title, i.platform, i.url, i.current_price, i.original_price,
		i.discount_percent, i.on_sale, i.image_url, i.description,
		i.lowest_price, i.lowest_price_at, i.last_checked_at, i.created_at, i.updated_at,
		u.id, u.external_id, u.username, u.created_at, u.updated_at
		FROM watches w
		JOIN items i ON i.id = w.item_id
		JOIN users u ON u.id = w.user_id
		ORDER BY w.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWatches(rows, true)
}

func scanWatch(row *sql.Row) (*Watch, error) {
	var w Watch
	var notifyAny int
	err := row.Scan(&w.ID, &w.UserID, &w.ItemID, &w.TargetPrice, &notifyAny,
		&w.LastNotifiedAt, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan watch: %w", err)
	}
	w.NotifyOnAnySale = notifyAny != 0
	return &w, nil
}

func collectWatches(rows *sql.Rows, withUser bool) ([]*Watch, error) {
	var result []*Watch
	for rows.Next() {
		var w Watch
		var it Item
		var notifyAny, onSale int
		dest := []any{
			&w.ID, &w.UserID, &w.ItemID, &w.TargetPrice, &notifyAny,
			&w.LastNotifiedAt, &w.CreatedAt,
			&it.ID, &it.Title, &it.Platform, &it.URL, &it.CurrentPrice, &it.OriginalPrice,
			&it.DiscountPercent, &onSale, &it.ImageURL, &it.Description,
			&it.LowestPrice, &it.LowestPriceAt, &it.LastCheckedAt, &it.CreatedAt, &it.UpdatedAt,
		}
		var u User
		if withUser {
			dest = append(dest, &u.ID, &u.ExternalID, &u.Username, &u.CreatedAt, &u.UpdatedAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan watch row: %w", err)
		}
		w.NotifyOnAnySale = notifyAny != 0
		it.OnSale = onSale != 0
		w.Item = &it
		if withUser {
			w.User = &u
		}
		result = append(result, &w)
	}
	return result, rows.Err()
}
