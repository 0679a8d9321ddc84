package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/pricewatch/dbopen"
	"github.com/hazyhaar/pricewatch/tracker"
	_ "modernc.org/sqlite"
)

type fixtureFetcher struct {
	snapshots map[string]*tracker.ItemSnapshot
}

func (f *fixtureFetcher) FetchItemDetails(_ context.Context, platform, url string) (*tracker.ItemSnapshot, error) {
	snap := f.snapshots[platform+"|"+url]
	if snap == nil {
		return nil, nil
	}
	c := *snap
	return &c, nil
}

func (f *fixtureFetcher) SearchItems(_ context.Context, platform, query string) ([]*tracker.ItemSnapshot, error) {
	var out []*tracker.ItemSnapshot
	for _, snap := range f.snapshots {
		if snap.Platform == platform && strings.Contains(strings.ToLower(snap.Title), strings.ToLower(query)) {
			c := *snap
			out = append(out, &c)
		}
	}
	return out, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *fixtureFetcher) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(tracker.Schema))
	price := 59.99
	fetcher := &fixtureFetcher{snapshots: map[string]*tracker.ItemSnapshot{
		"steam|https://store.example.com/app/42": {
			Title:        "Hollow Depths",
			Platform:     "steam",
			URL:          "https://store.example.com/app/42",
			CurrentPrice: &price,
		},
	}}
	cfg := tracker.Config{}
	cfg.Schedule.InterWatchDelay = time.Nanosecond
	svc := tracker.New(db, fetcher, nopNotifier{}, cfg, nil)
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return srv, fetcher
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	// WHAT: /health answers ok.
	// WHY: Deploys probe it.
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTrackByURLFlow(t *testing.T) {
	// WHAT: POST /api/track with a URL fetches, creates and subscribes in
	// one call; the watch then shows up under the user.
	// WHY: This is the command layer's main entry point.
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/track", map[string]any{
		"external_id":  "ext-1",
		"username":     "alice",
		"url":          "https://store.example.com/app/42",
		"target_price": 40.0,
	})
	if resp.StatusCode != 201 {
		t.Fatalf("track status: %d", resp.StatusCode)
	}
	watch := decode[tracker.Watch](t, resp)
	if watch.ID == "" || watch.TargetPrice == nil || *watch.TargetPrice != 40 {
		t.Errorf("watch: %+v", watch)
	}

	resp2, err := http.Get(srv.URL + "/api/users/ext-1/watches")
	if err != nil {
		t.Fatalf("GET watches: %v", err)
	}
	watches := decode[[]tracker.Watch](t, resp2)
	if len(watches) != 1 || watches[0].Item == nil || watches[0].Item.Title != "Hollow Depths" {
		t.Errorf("watches: %+v", watches)
	}

	// Untrack, then once more: removed true, then false.
	for i, want := range []bool{true, false} {
		resp := postJSON(t, srv.URL+"/api/untrack", map[string]any{
			"external_id": "ext-1",
			"item_id":     watch.ItemID,
		})
		out := decode[map[string]bool](t, resp)
		if out["removed"] != want {
			t.Errorf("untrack #%d: removed=%v, want %v", i+1, out["removed"], want)
		}
	}
}

func TestTrackUnknownURL(t *testing.T) {
	// WHAT: Tracking a URL the storefront has no listing for is a 404.
	// WHY: The user typed a dead link; say so.
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/track", map[string]any{
		"external_id": "ext-1",
		"url":         "https://store.example.com/app/404",
	})
	if resp.StatusCode != 404 {
		t.Errorf("status: %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestErrorMapping(t *testing.T) {
	// WHAT: Sentinel errors surface as their HTTP codes.
	// WHY: The command layer branches on status.
	srv, _ := newTestServer(t)

	resp, _ := http.Get(srv.URL + "/api/items/itm_missing")
	if resp.StatusCode != 404 {
		t.Errorf("unknown item: %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(srv.URL + "/api/search?platform=steam")
	if resp.StatusCode != 400 {
		t.Errorf("empty query: %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/items", map[string]any{"title": ""})
	if resp.StatusCode != 400 {
		t.Errorf("bad snapshot: %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestManualRun(t *testing.T) {
	// WHAT: POST /api/run executes a batch and reports the summary.
	// WHY: Support needs an on-demand run without waiting for the daily slot.
	srv, _ := newTestServer(t)

	postJSON(t, srv.URL+"/api/track", map[string]any{
		"external_id":  "ext-1",
		"username":     "alice",
		"url":          "https://store.example.com/app/42",
		"target_price": 60.0,
	})

	resp := postJSON(t, srv.URL+"/api/run", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("run status: %d", resp.StatusCode)
	}
	summary := decode[tracker.RunSummary](t, resp)
	if summary.Checked != 1 || summary.Notified != 1 {
		t.Errorf("summary: %+v", summary)
	}

	// History now exists for the item.
	watches := decode[[]tracker.Watch](t, mustGet(t, srv.URL+"/api/users/ext-1/watches"))
	resp = mustGet(t, srv.URL+"/api/items/"+watches[0].ItemID+"/history")
	if resp.StatusCode != 200 {
		t.Errorf("history status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	recs := decode[[]tracker.NotificationRecord](t, mustGet(t, srv.URL+"/api/users/ext-1/notifications"))
	if len(recs) != 1 {
		t.Errorf("notifications: %+v", recs)
	}
}

func mustGet(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}
