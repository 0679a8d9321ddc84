package tracker

import "context"

// Fetcher obtains price data from a storefront. Implementations live
// outside this package (HTTP bridges, scrapers, fixtures in tests).
type Fetcher interface {
	// FetchItemDetails returns the current listing for one storefront URL.
	// A (nil, nil) return means the storefront answered but had no listing
	// for the URL; an error means the fetch itself failed and the caller
	// should leave stored state untouched.
	FetchItemDetails(ctx context.Context, platform, url string) (*ItemSnapshot, error)

	// SearchItems runs a free-text catalog search on one storefront.
	// An empty slice is a valid answer.
	SearchItems(ctx context.Context, platform, query string) ([]*ItemSnapshot, error)
}

// Notifier delivers a rendered notification to a user, addressed by the
// external chat-platform ID. An error means nothing was delivered; the
// caller must not stamp the watch.
type Notifier interface {
	Notify(ctx context.Context, userExternalID, message string) error
}
