package tracker

import "github.com/hazyhaar/pricewatch/tracker/internal/store"

// Storage types re-exported so callers never import the internal store.
type (
	Item               = store.Item
	ItemSnapshot       = store.ItemSnapshot
	PriceObservation   = store.PriceObservation
	User               = store.User
	Watch              = store.Watch
	NotificationRecord = store.NotificationRecord
)

// Schema is the SQLite DDL for the tracker tables, exposed for callers
// that open the database themselves (dbopen.WithSchema).
const Schema = store.Schema

// RunSummary reports one batch run: how many watches were visited, how
// many notifications went out, and how many watches failed and were
// skipped.
type RunSummary struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}
