package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/feed-sync/internal/events"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusDeps struct {
	Runs  *events.InMemory
	Store Pinger
}

type statusResponse struct {
	OK            bool                    `json:"ok"`
	Runs          []events.RunCompleted   `json:"runs"`
	UpsertedTotal int64                   `json:"upserted_total"`
	LastUpserted  *events.ListingUpserted `json:"last_upserted,omitempty"`
}

func RegisterStatus(r chi.Router, d StatusDeps) {
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		resp := statusResponse{OK: true, Runs: []events.RunCompleted{}}
		if d.Runs != nil {
			resp.Runs = d.Runs.Runs()
			sort.Slice(resp.Runs, func(i, j int) bool { return resp.Runs[i].Mode < resp.Runs[j].Mode })
			n, last := d.Runs.Upserted()
			resp.UpsertedTotal = n
			if n > 0 {
				resp.LastUpserted = &last
			}
		}
		render.JSON(w, req, resp)
	})

	r.Get("/status/{mode}", func(w http.ResponseWriter, req *http.Request) {
		mode := chi.URLParam(req, "mode")
		if d.Runs == nil {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "no_runs"})
			return
		}
		run, ok := d.Runs.LastRun(mode)
		if !ok {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "no_runs", "mode": mode})
			return
		}
		render.JSON(w, req, run)
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if d.Store == nil {
			render.JSON(w, req, map[string]any{"ok": true})
			return
		}
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			render.Status(req, http.StatusServiceUnavailable)
			render.JSON(w, req, map[string]any{"ok": false, "error": "store_unreachable", "detail": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{"ok": true})
	})
}
