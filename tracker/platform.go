package tracker

import "strings"

// InferPlatform guesses the storefront from a listing URL. Unknown hosts
// fall back to steam, the most common storefront by far.
func InferPlatform(url string) string {
	u := strings.ToLower(url)
	switch {
	case strings.Contains(u, "steampowered.com") || strings.Contains(u, "steam"):
		return "steam"
	case strings.Contains(u, "epicgames.com") || strings.Contains(u, "epic"):
		return "epic"
	case strings.Contains(u, "gog.com"):
		return "gog"
	case strings.Contains(u, "playstation.com") || strings.Contains(u, "playstation"):
		return "playstation"
	case strings.Contains(u, "nintendo.com") || strings.Contains(u, "nintendo"):
		return "nintendo"
	default:
		return "steam"
	}
}
