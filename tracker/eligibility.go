package tracker

import (
	"fmt"
	"strings"
	"time"
)

// NotifyCooldown is the minimum gap between two notifications for the
// same watch. Fixed, not a config knob: the daily schedule plus this
// cooldown means at most one message per watch per day.
const NotifyCooldown = 24 * time.Hour

// Decision reasons. The fired reason doubles as the notification kind
// in the delivery log.
const (
	ReasonNoPrice       = "no_price"
	ReasonCooldown      = "cooldown"
	ReasonTargetReached = "target_reached"
	ReasonSale          = "sale"
	ReasonNotEligible   = "not_eligible"
)

// Decision is the outcome of evaluating one watch against the current
// item state.
type Decision struct {
	Eligible bool
	Reason   string
}

// Evaluate decides whether a watch should fire a notification right now.
// Pure: no I/O, no clock reads. Order matters: a missing price or an
// active cooldown short-circuits before any deal check, and the target
// check wins over the sale check when both hold.
func Evaluate(w *Watch, item *Item, now time.Time) Decision {
	if item.CurrentPrice == nil {
		return Decision{Reason: ReasonNoPrice}
	}
	if w.LastNotifiedAt != nil {
		last := time.UnixMilli(*w.LastNotifiedAt)
		if now.Sub(last) < NotifyCooldown {
			return Decision{Reason: ReasonCooldown}
		}
	}
	if w.TargetPrice != nil && *item.CurrentPrice <= *w.TargetPrice {
		return Decision{Eligible: true, Reason: ReasonTargetReached}
	}
	if w.NotifyOnAnySale && item.OnSale {
		return Decision{Eligible: true, Reason: ReasonSale}
	}
	return Decision{Reason: ReasonNotEligible}
}

// RenderNotification builds the plain-text message for an eligible watch.
// Deterministic: same watch and item state, same string.
func RenderNotification(w *Watch, item *Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Price alert: %s [%s]\n", item.Title, item.Platform)
	if item.CurrentPrice != nil {
		fmt.Fprintf(&b, "Now %.2f", *item.CurrentPrice)
		if item.OnSale && item.OriginalPrice != nil && *item.OriginalPrice > *item.CurrentPrice {
			fmt.Fprintf(&b, " (was %.2f, -%d%%)", *item.OriginalPrice, item.DiscountPercent)
		}
		b.WriteString("\n")
	}
	if w.TargetPrice != nil {
		fmt.Fprintf(&b, "Your target: %.2f\n", *w.TargetPrice)
	}
	b.WriteString(item.URL)
	return b.String()
}
