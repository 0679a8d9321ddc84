// Package api exposes the tracker operations over HTTP for an external
// command layer (chat bots, dashboards). JSON in, JSON out; sentinel
// errors map onto status codes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/pricewatch/tracker"
)

// NewRouter builds the HTTP surface on top of a tracker Service.
func NewRouter(svc *tracker.Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.search)
		r.Post("/items", h.createItem)
		r.Get("/items/{itemID}", h.getItem)
		r.Get("/items/{itemID}/history", h.priceHistory)
		r.Post("/items/{itemID}/refresh", h.refreshItem)
		r.Post("/track", h.track)
		r.Post("/untrack", h.untrack)
		r.Get("/users/{externalID}/watches", h.listWatches)
		r.Get("/users/{externalID}/notifications", h.listNotifications)
		r.Post("/run", h.run)
	})

	return r
}

type handlers struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snaps, err := h.svc.Search(r.Context(), q.Get("platform"), q.Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, snaps)
}

func (h *handlers) createItem(w http.ResponseWriter, r *http.Request) {
	var snap tracker.ItemSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, 400, err)
		return
	}
	item, err := h.svc.GetOrCreateFromSnapshot(r.Context(), &snap)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 201, item)
}

func (h *handlers) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, item)
}

func (h *handlers) priceHistory(w http.ResponseWriter, r *http.Request) {
	obs, err := h.svc.PriceHistory(r.Context(), chi.URLParam(r, "itemID"), queryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, obs)
}

func (h *handlers) refreshItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Refresh(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, item)
}

type trackRequest struct {
	ExternalID  string   `json:"external_id"`
	Username    string   `json:"username"`
	ItemID      string   `json:"item_id"`
	Platform    string   `json:"platform"`
	URL         string   `json:"url"`
	TargetPrice *float64 `json:"target_price"`
	// NotifyOnAnySale defaults to true when omitted.
	NotifyOnAnySale *bool `json:"notify_on_any_sale"`
}

// track subscribes a user to an item, addressed either by item_id or by
// url (the item is fetched and created on first sight).
func (h *handlers) track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}

	itemID := req.ItemID
	if itemID == "" && req.URL != "" {
		item, err := h.svc.ResolveItem(r.Context(), req.Platform, req.URL)
		if err != nil {
			h.fail(w, err)
			return
		}
		itemID = item.ID
	}

	anySale := true
	if req.NotifyOnAnySale != nil {
		anySale = *req.NotifyOnAnySale
	}

	watch, err := h.svc.Track(r.Context(), req.ExternalID, req.Username, itemID, req.TargetPrice, anySale)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 201, watch)
}

type untrackRequest struct {
	ExternalID string `json:"external_id"`
	ItemID     string `json:"item_id"`
}

func (h *handlers) untrack(w http.ResponseWriter, r *http.Request) {
	var req untrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	removed, err := h.svc.Untrack(r.Context(), req.ExternalID, req.ItemID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]bool{"removed": removed})
}

func (h *handlers) listWatches(w http.ResponseWriter, r *http.Request) {
	watches, err := h.svc.ListForUser(r.Context(), chi.URLParam(r, "externalID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, watches)
}

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.NotificationHistory(r.Context(), chi.URLParam(r, "externalID"), queryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, recs)
}

func (h *handlers) run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.RunOnce(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, 200, summary)
}

// fail maps sentinel errors to HTTP status codes. Unexpected errors are
// logged and returned as opaque 500s.
func (h *handlers) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, 404, err)
	case errors.Is(err, tracker.ErrInvalidInput):
		writeError(w, 400, err)
	case errors.Is(err, tracker.ErrRunInProgress):
		writeError(w, 409, err)
	case errors.Is(err, tracker.ErrFetchUnavailable):
		writeError(w, 502, err)
	default:
		h.logger.Error("api: internal error", "error", err)
		writeError(w, 500, errors.New("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
