package store

import (
	"context"
	"database/sql"
	"fmt"
)

const itemColumns = `id, title, platform, url, current_price, original_price,
	discount_percent, on_sale, image_url, description,
	lowest_price, lowest_price_at, last_checked_at, created_at, updated_at`

// GetItem retrieves an item by ID. Returns (nil, nil) when absent.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	return scanItem(row)
}

// GetItemByPlatformURL retrieves an item by its canonical (platform, url)
// pair. Returns (nil, nil) when absent.
func (s *Store) GetItemByPlatformURL(ctx context.Context, platform, url string) (*Item, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE platform = ? AND url = ?`, platform, url)
	return scanItem(row)
}

// ApplySnapshot upserts an item from a fetched snapshot, in one transaction.
//
// Absent (platform, url): inserts a new item and, when the snapshot carries
// a price, seeds the first price observation with it.
//
// Present: when the fetched price differs from the stored current price, an
// observation carrying the OLD price is appended first (the ledger records
// the price that held immediately prior to the change), then the item's
// current state is overwritten. The historical low is lowered when the new
// price undercuts it (or when no low was recorded yet). Image and
// description are overwritten only when the snapshot carries them.
// last_checked_at always advances: a check happened either way.
func (s *Store) ApplySnapshot(ctx context.Context, snap *ItemSnapshot, now int64) (*Item, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE platform = ? AND url = ?`,
		snap.Platform, snap.URL)
	existing, err := scanItem(row)
	if err != nil {
		return nil, err
	}

	// on_sale is derived from the prices, never trusted from the snapshot:
	// a listing is on sale exactly when its original price exceeds the
	// current one.
	onSale := snap.OriginalPrice != nil && snap.CurrentPrice != nil &&
		*snap.OriginalPrice > *snap.CurrentPrice

	var itemID string
	if existing == nil {
		itemID = s.newItemID()
		lowest, lowestAt := snap.CurrentPrice, (*int64)(nil)
		if snap.CurrentPrice != nil {
			lowestAt = &now
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO items (id, title, platform, url, current_price, original_price,
			discount_percent, on_sale, image_url, description,
			lowest_price, lowest_price_at, last_checked_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			itemID, snap.Title, snap.Platform, snap.URL, snap.CurrentPrice, snap.OriginalPrice,
			snap.DiscountPercent, onSale, snap.ImageURL, snap.Description,
			lowest, lowestAt, now, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
		if snap.CurrentPrice != nil {
			if err := appendObservation(ctx, tx, s.newObsID(), itemID, *snap.CurrentPrice, snap.DiscountPercent, now); err != nil {
				return nil, err
			}
		}
	} else {
		itemID = existing.ID
		// Ledger entry only when the old price exists and differs. A null
		// old price has nothing to record; the value itself is captured by
		// the next change.
		if existing.CurrentPrice != nil && !priceEqual(existing.CurrentPrice, snap.CurrentPrice) {
			if err := appendObservation(ctx, tx, s.newObsID(), itemID, *existing.CurrentPrice, existing.DiscountPercent, now); err != nil {
				return nil, err
			}
		}

		lowest, lowestAt := existing.LowestPrice, existing.LowestPriceAt
		if snap.CurrentPrice != nil && (lowest == nil || *snap.CurrentPrice < *lowest) {
			lowest, lowestAt = snap.CurrentPrice, &now
		}
		imageURL := existing.ImageURL
		if snap.ImageURL != "" {
			imageURL = snap.ImageURL
		}
		description := existing.Description
		if snap.Description != "" {
			description = snap.Description
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET title=?, current_price=?, original_price=?,
			discount_percent=?, on_sale=?, image_url=?, description=?,
			lowest_price=?, lowest_price_at=?, last_checked_at=?, updated_at=?
			WHERE id=?`,
			snap.Title, snap.CurrentPrice, snap.OriginalPrice,
			snap.DiscountPercent, onSale, imageURL, description,
			lowest, lowestAt, now, now, itemID,
		)
		if err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}

	row = tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, itemID)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

// ListObservations returns the most recent price observations for an item,
// newest first.
func (s *Store) ListObservations(ctx context.Context, itemID string, limit int) ([]*PriceObservation, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, item_id, price, discount_percent, observed_at
		FROM price_observations WHERE item_id = ?
		ORDER BY observed_at DESC, id DESC LIMIT ?`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*PriceObservation
	for rows.Next() {
		var o PriceObservation
		if err := rows.Scan(&o.ID, &o.ItemID, &o.Price, &o.DiscountPercent, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		result = append(result, &o)
	}
	return result, rows.Err()
}

// CountObservations returns the ledger size for an item.
func (s *Store) CountObservations(ctx context.Context, itemID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_observations WHERE item_id = ?`, itemID).Scan(&count)
	return count, err
}

func appendObservation(ctx context.Context, tx *sql.Tx, id, itemID string, price float64, discount int, now int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO price_observations (id, item_id, price, discount_percent, observed_at)
		VALUES (?, ?, ?, ?, ?)`, id, itemID, price, discount, now)
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

// priceEqual compares two nullable prices. The comparison is exact: a price
// observed twice at the same value is indistinguishable from one that held.
func priceEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func scanItem(row *sql.Row) (*Item, error) {
	var it Item
	var onSale int
	err := row.Scan(
		&it.ID, &it.Title, &it.Platform, &it.URL, &it.CurrentPrice, &it.OriginalPrice,
		&it.DiscountPercent, &onSale, &it.ImageURL, &it.Description,
		&it.LowestPrice, &it.LowestPriceAt, &it.LastCheckedAt, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	it.OnSale = onSale != 0
	return &it, nil
}
