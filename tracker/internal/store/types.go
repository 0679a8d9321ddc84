package store

// Item is a trackable catalog entry on one storefront, identified by
// (platform, url). Prices are nil when the storefront exposed none.
type Item struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Platform        string   `json:"platform"`
	URL             string   `json:"url"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	DiscountPercent int      `json:"discount_percent"`
	OnSale          bool     `json:"on_sale"`
	ImageURL        string   `json:"image_url,omitempty"`
	Description     string   `json:"description,omitempty"`
	LowestPrice     *float64 `json:"lowest_price,omitempty"`
	LowestPriceAt   *int64   `json:"lowest_price_at,omitempty"`
	LastCheckedAt   int64    `json:"last_checked_at"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

// ItemSnapshot is one price reading produced by the external fetch
// capability. It carries everything needed to create or refresh an Item.
// OnSale is what the storefront claims; the stored item derives its own
// flag from the two prices.
type ItemSnapshot struct {
	Title           string   `json:"title"`
	Platform        string   `json:"platform"`
	URL             string   `json:"url"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	DiscountPercent int      `json:"discount_percent"`
	OnSale          bool     `json:"on_sale"`
	ImageURL        string   `json:"image_url,omitempty"`
	Description     string   `json:"description,omitempty"`
}

// PriceObservation is one historical price reading for an item. Rows are
// append-only; a new row is written only when the price actually changed.
type PriceObservation struct {
	ID              string  `json:"id"`
	ItemID          string  `json:"item_id"`
	Price           float64 `json:"price"`
	DiscountPercent int     `json:"discount_percent"`
	ObservedAt      int64   `json:"observed_at"`
}

// User identifies a tracker by the external chat-platform ID. Created
// lazily on the first track command.
type User struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Username   string `json:"username"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// Watch is one user's subscription to price changes on one item.
// Unique on (UserID, ItemID).
type Watch struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	ItemID          string   `json:"item_id"`
	TargetPrice     *float64 `json:"target_price,omitempty"`
	NotifyOnAnySale bool     `json:"notify_on_any_sale"`
	LastNotifiedAt  *int64   `json:"last_notified_at,omitempty"`
	CreatedAt       int64    `json:"created_at"`

	// User and Item are populated by the eager-loading list queries and
	// nil otherwise.
	User *User `json:"user,omitempty"`
	Item *Item `json:"item,omitempty"`
}

// NotificationRecord is one delivery log entry. Write-once; it has no
// bearing on future eligibility decisions (that state lives on the watch).
type NotificationRecord struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	ItemID  string `json:"item_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	SentAt  int64  `json:"sent_at"`
}
