package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/pricewatch/tracker"
)

func TestHTTPFetcher_Details(t *testing.T) {
	// WHAT: /details round trip: found, not found, upstream failure.
	// WHY: The (nil, nil) vs error distinction drives whether stored item
	// state is touched.
	price := 59.99
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/details" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "pricewatch/1.0" {
			t.Errorf("user agent: %s", ua)
		}
		switch r.URL.Query().Get("url") {
		case "https://store.example.com/app/42":
			json.NewEncoder(w).Encode(tracker.ItemSnapshot{
				Title:        "Hollow Depths",
				Platform:     r.URL.Query().Get("platform"),
				URL:          r.URL.Query().Get("url"),
				CurrentPrice: &price,
			})
		case "https://store.example.com/app/404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer upstream.Close()

	f := NewHTTPFetcher(FetcherConfig{BaseURL: upstream.URL}, nil)
	ctx := context.Background()

	snap, err := f.FetchItemDetails(ctx, "steam", "https://store.example.com/app/42")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap == nil || snap.Title != "Hollow Depths" || *snap.CurrentPrice != 59.99 {
		t.Errorf("snapshot: %+v", snap)
	}

	snap, err = f.FetchItemDetails(ctx, "steam", "https://store.example.com/app/404")
	if err != nil || snap != nil {
		t.Errorf("no listing: got %+v, %v; want nil, nil", snap, err)
	}

	if _, err := f.FetchItemDetails(ctx, "steam", "https://store.example.com/app/boom"); err == nil {
		t.Error("upstream 502 should be an error")
	}
}

func TestHTTPFetcher_Search(t *testing.T) {
	// WHAT: /search decodes a result list; 204 yields an empty slice.
	// WHY: An empty catalog answer is not an error.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "nothing" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode([]*tracker.ItemSnapshot{
			{Title: "Hollow Depths", Platform: "steam"},
		})
	}))
	defer upstream.Close()

	f := NewHTTPFetcher(FetcherConfig{BaseURL: upstream.URL}, nil)
	snaps, err := f.SearchItems(context.Background(), "steam", "hollow")
	if err != nil || len(snaps) != 1 {
		t.Fatalf("search: %v, %+v", err, snaps)
	}

	snaps, err = f.SearchItems(context.Background(), "steam", "nothing")
	if err != nil {
		t.Fatalf("empty search: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected empty slice, got %+v", snaps)
	}
}

func TestWebhookNotifier(t *testing.T) {
	// WHAT: One POST per notification; non-2xx is an error.
	// WHY: The batch layer decides on retry-next-run from this error.
	var got notification
	fail := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer upstream.Close()

	n := NewWebhookNotifier(upstream.URL)
	if err := n.Notify(context.Background(), "ext-1", "Price alert"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.UserExternalID != "ext-1" || got.Message != "Price alert" || got.SentAt == 0 {
		t.Errorf("payload: %+v", got)
	}

	fail = true
	if err := n.Notify(context.Background(), "ext-1", "Price alert"); err == nil {
		t.Error("500 should be an error")
	}
}

func TestStdoutNotifier(t *testing.T) {
	// WHAT: One JSON line per notification.
	// WHY: The default sink must stay machine-parseable.
	var buf bytes.Buffer
	n := NewStdoutNotifier(&buf)
	if err := n.Notify(context.Background(), "ext-1", "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	var payload notification
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("not a JSON line: %q", line)
	}
	if payload.UserExternalID != "ext-1" || payload.Message != "hello" {
		t.Errorf("payload: %+v", payload)
	}
}
