package hydrator

import (
	"context"
	"time"

	"github.com/yourorg/feed-sync/feed"
	"github.com/yourorg/feed-sync/internal/config"
)

// WatermarkSource reads the newest persisted change timestamp.
type WatermarkSource interface {
	LatestModification(ctx context.Context) (*time.Time, error)
}

// Watermark decides where a run starts. It is read once per run and never cached.
type Watermark struct {
	Source WatermarkSource
	Field  string // feed field compared against the watermark
}

func (w *Watermark) Read(ctx context.Context) (*time.Time, error) {
	return w.Source.LatestModification(ctx)
}

// Plan returns the feed filter for the run and whether the run may proceed.
// Incremental runs need a watermark; an empty store must be seeded by an
// explicit backfill. Backfills never filter.
func (w *Watermark) Plan(mode config.Mode, wm *time.Time) (filter string, proceed bool) {
	if mode == config.ModeBackfill {
		return "", true
	}
	if wm == nil {
		return "", false
	}
	field := w.Field
	if field == "" {
		field = feed.ModificationField
	}
	// ge re-reads the newest stored record every run; the upsert absorbs it.
	return feed.SinceFilter(field, *wm), true
}
