package store

import "database/sql"

// Schema is the complete pricewatch schema. Timestamps are milliseconds
// since epoch; prices are REAL in storefront currency units, NULL when the
// storefront exposes no price.
const Schema = `
-- Catalog items (one row per storefront listing)
CREATE TABLE IF NOT EXISTS items (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    platform         TEXT NOT NULL,
    url              TEXT NOT NULL,
    current_price    REAL,
    original_price   REAL,
    discount_percent INTEGER NOT NULL DEFAULT 0,
    on_sale          INTEGER NOT NULL DEFAULT 0,
    image_url        TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    lowest_price     REAL,
    lowest_price_at  INTEGER,
    last_checked_at  INTEGER NOT NULL,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_platform_url ON items(platform, url);

-- Append-only price observations (one row per detected price change)
CREATE TABLE IF NOT EXISTS price_observations (
    id               TEXT PRIMARY KEY,
    item_id          TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    price            REAL NOT NULL,
    discount_percent INTEGER NOT NULL DEFAULT 0,
    observed_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_item ON price_observations(item_id, observed_at DESC);

-- Users, keyed by the external (chat-platform) ID
CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    username    TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Watches: one user's subscription to one item
CREATE TABLE IF NOT EXISTS watches (
    id                 TEXT PRIMARY KEY,
    user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    item_id            TEXT NOT NULL REFERENCES items(id),
    target_price       REAL,
    notify_on_any_sale INTEGER NOT NULL DEFAULT 1,
    last_notified_at   INTEGER,
    created_at         INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_watches_user_item ON watches(user_id, item_id);

-- Delivery log: audit trail of sent notifications
CREATE TABLE IF NOT EXISTS notifications (
    id       TEXT PRIMARY KEY,
    user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    item_id  TEXT NOT NULL REFERENCES items(id),
    kind     TEXT NOT NULL,
    message  TEXT NOT NULL DEFAULT '',
    sent_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, sent_at DESC);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
