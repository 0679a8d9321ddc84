// Package store provides the SQLite data access layer for the price
// tracking engine: the item catalog with its price history ledger, the
// user/watch registry, and the notification delivery log.
package store

import (
	"database/sql"

	"github.com/hazyhaar/pricewatch/idgen"
)

// Store wraps an already-opened pricewatch database.
type Store struct {
	DB *sql.DB

	newItemID  idgen.Generator
	newObsID   idgen.Generator
	newUserID  idgen.Generator
	newWatchID idgen.Generator
	newNotifID idgen.Generator
}

// New creates a Store from an already-opened database connection.
func New(db *sql.DB) *Store {
	return &Store{
		DB:         db,
		newItemID:  idgen.Prefixed("itm_", idgen.Default),
		newObsID:   idgen.Prefixed("obs_", idgen.Default),
		newUserID:  idgen.Prefixed("usr_", idgen.Default),
		newWatchID: idgen.Prefixed("wch_", idgen.Default),
		newNotifID: idgen.Prefixed("ntf_", idgen.Default),
	}
}
