package hydrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/feed-sync/feed"
	"github.com/yourorg/feed-sync/internal/config"
	"github.com/yourorg/feed-sync/internal/events"
	"github.com/yourorg/feed-sync/internal/metrics"
	"github.com/yourorg/feed-sync/internal/normalize"
)

// Feed is the subset of the feed client a run needs.
type Feed interface {
	Ping(ctx context.Context) error
	ListingFetcher
	Media(ctx context.Context, listingKey string) ([]feed.MediaAsset, error)
}

type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeRefused Outcome = "refused"
	OutcomeFatal   Outcome = "fatal"
)

// Report is what one run did.
type Report struct {
	Mode        config.Mode
	Outcome     Outcome
	Pages       int
	Fetched     int
	Upserted    int
	Failed      int
	MediaErrors int
	Watermark   *time.Time
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

func (r Report) event() events.RunCompleted {
	evt := events.RunCompleted{
		Mode:        string(r.Mode),
		Outcome:     string(r.Outcome),
		Pages:       r.Pages,
		Fetched:     r.Fetched,
		Upserted:    r.Upserted,
		Failed:      r.Failed,
		MediaErrors: r.MediaErrors,
		Watermark:   r.Watermark,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if r.Err != nil {
		evt.Error = r.Err.Error()
	}
	return evt
}

type BulkConfig struct {
	Mode      config.Mode
	StartPage int
	EndPage   int
	PageSize  int
	Interval  time.Duration
	PagePause time.Duration
}

// BulkJob runs the sync: auth check, watermark, pages, then one record at a
// time through normalize and the sink.
type BulkJob struct {
	Feed      Feed
	Hydrator  *Hydrator
	Watermark *Watermark
	Metrics   *metrics.Sync
	Logger    *zap.Logger
	Config    BulkConfig
}

func (j *BulkJob) log() *zap.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return zap.NewNop()
}

func (j *BulkJob) validate() error {
	if j == nil {
		return errors.New("nil bulk job")
	}
	if j.Feed == nil {
		return errors.New("bulk job missing feed client")
	}
	if !j.Hydrator.Enabled() {
		return errors.New("bulk job requires hydrator with store")
	}
	if j.Watermark == nil || j.Watermark.Source == nil {
		return errors.New("bulk job requires a watermark source")
	}
	switch j.Config.Mode {
	case config.ModeIncremental:
	case config.ModeBackfill:
		if j.Config.StartPage < 1 || j.Config.EndPage < j.Config.StartPage {
			return fmt.Errorf("%w: backfill pages %d..%d", config.ErrConfiguration, j.Config.StartPage, j.Config.EndPage)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", config.ErrConfiguration, j.Config.Mode)
	}
	if j.Config.PageSize <= 0 {
		j.Config.PageSize = feed.DefaultPageSize
	}
	return nil
}

// Run executes RunOnce, then again every Interval until ctx is done. Without
// an interval it is a single run whose error is returned.
func (j *BulkJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		_, err := j.RunOnce(ctx)
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.log().Info("sync loop starting", zap.Duration("interval", interval), zap.String("mode", string(j.Config.Mode)))
	if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.log().Error("initial sync run failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			j.log().Info("sync loop stopping", zap.Error(ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.log().Error("sync run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one full run. The returned error is non-nil exactly when
// the outcome is OutcomeFatal; a refused run is not an error.
func (j *BulkJob) RunOnce(ctx context.Context) (rep Report, err error) {
	if err := j.validate(); err != nil {
		return Report{Outcome: OutcomeFatal, Err: err}, err
	}
	mode := j.Config.Mode
	log := j.log().With(zap.String("mode", string(mode)))
	rep = Report{Mode: mode, StartedAt: time.Now().UTC()}
	defer func() {
		if err != nil {
			rep.Outcome, rep.Err = OutcomeFatal, err
		}
		j.finish(ctx, log, &rep)
	}()

	if err := j.Feed.Ping(ctx); err != nil {
		return rep, fmt.Errorf("auth check: %w", err)
	}

	wm, err := j.Watermark.Read(ctx)
	if err != nil {
		return rep, fmt.Errorf("read watermark: %w", err)
	}
	rep.Watermark = wm
	filter, proceed := j.Watermark.Plan(mode, wm)
	if !proceed {
		log.Warn("store has no watermark; run a backfill before incremental syncs")
		rep.Outcome = OutcomeRefused
		return rep, nil
	}
	if wm != nil {
		log.Info("watermark", zap.Time("since", *wm), zap.Bool("filtered", filter != ""))
	}

	pager := &Pager{
		Feed:      j.Feed,
		Mode:      mode,
		StartPage: j.Config.StartPage,
		EndPage:   j.Config.EndPage,
		PageSize:  j.Config.PageSize,
		Filter:    filter,
		Pause:     j.Config.PagePause,
	}
	for page, err := range pager.Pages(ctx) {
		if err != nil {
			return rep, err
		}
		rep.Pages++
		rep.Fetched += len(page.Items)
		j.Metrics.PageFetched(string(mode))
		log.Debug("page fetched", zap.Int("page", page.Window.Page), zap.Int("items", len(page.Items)))
		for _, raw := range page.Items {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			j.syncListing(ctx, log, raw, &rep)
		}
	}
	rep.Outcome = OutcomeDone
	return rep, nil
}

// syncListing never fails the run: record level problems are logged and counted.
func (j *BulkJob) syncListing(ctx context.Context, log *zap.Logger, raw feed.RawListing, rep *Report) {
	mode := string(rep.Mode)
	key := raw.Key()
	if key == "" {
		rep.Failed++
		j.Metrics.Failed(mode)
		log.Warn("listing without key skipped")
		return
	}

	media, err := j.Feed.Media(ctx, key)
	if err != nil {
		rep.MediaErrors++
		j.Metrics.MediaError(mode)
		log.Warn("media lookup failed; continuing without images", zap.String("listing_key", key), zap.Error(err))
		media = nil
	}

	rec := normalize.Normalize(raw, media)
	if err := j.Hydrator.Write(ctx, rec); err != nil {
		rep.Failed++
		j.Metrics.Failed(mode)
		log.Error("listing skipped", zap.String("listing_key", key), zap.Error(err))
		return
	}
	rep.Upserted++
	j.Metrics.Upserted(mode)
}

func (j *BulkJob) finish(ctx context.Context, log *zap.Logger, rep *Report) {
	rep.FinishedAt = time.Now().UTC()
	elapsed := rep.FinishedAt.Sub(rep.StartedAt)
	j.Metrics.ObserveRun(string(rep.Mode), string(rep.Outcome), elapsed, rep.Watermark)
	if j.Hydrator.Pub != nil {
		j.Hydrator.Pub.PublishRunCompleted(context.WithoutCancel(ctx), rep.event())
	}
	fields := []zap.Field{
		zap.String("outcome", string(rep.Outcome)),
		zap.Int("pages", rep.Pages),
		zap.Int("fetched", rep.Fetched),
		zap.Int("upserted", rep.Upserted),
		zap.Int("failed", rep.Failed),
		zap.Int("media_errors", rep.MediaErrors),
		zap.Duration("elapsed", elapsed),
	}
	if rep.Outcome == OutcomeFatal {
		log.Error("sync run aborted", append(fields, zap.Error(rep.Err))...)
		return
	}
	log.Info("sync run finished", fields...)
}
