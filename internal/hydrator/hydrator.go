package hydrator

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/yourorg/feed-sync/internal/events"
    "github.com/yourorg/feed-sync/internal/normalize"
)

// ErrPersist is returned when a record could not be written within its attempts.
var ErrPersist = errors.New("persist failed")

const DefaultWriteAttempts = 3

// Writer is the store side of the sink.
type Writer interface {
    UpsertListing(ctx context.Context, rec normalize.Record) error
}

// Hydrator writes normalized listings to the store, one record at a time,
// retrying each write on its own budget independent of the feed's retries.
type Hydrator struct {
    Store      Writer
    Pub        events.Publisher
    Attempts   int
    RetryDelay time.Duration
    Logger     *zap.Logger
}

func (h *Hydrator) Enabled() bool { return h != nil && h.Store != nil }

func (h *Hydrator) log() *zap.Logger {
    if h.Logger != nil { return h.Logger }
    return zap.NewNop()
}

// Write upserts rec. The last store error is returned wrapped in ErrPersist
// once every attempt failed; callers log it and move on.
func (h *Hydrator) Write(ctx context.Context, rec normalize.Record) error {
    if !h.Enabled() { return errors.New("hydrator has no store") }
    attempts := h.Attempts
    if attempts <= 0 { attempts = DefaultWriteAttempts }

    var err error
    for attempt := 1; attempt <= attempts; attempt++ {
        if err = h.Store.UpsertListing(ctx, rec); err == nil {
            h.publish(ctx, rec)
            return nil
        }
        h.log().Warn("listing upsert attempt failed",
            zap.String("listing_key", rec.Key()),
            zap.Int("attempt", attempt),
            zap.Int("of", attempts),
            zap.Error(err),
        )
        if attempt == attempts { break }
        if werr := sleep(ctx, h.RetryDelay*time.Duration(attempt)); werr != nil {
            err = werr
            break
        }
    }
    return fmt.Errorf("%w: listing %s: %w", ErrPersist, rec.Key(), err)
}

func (h *Hydrator) publish(ctx context.Context, rec normalize.Record) {
    if h.Pub == nil { return }
    evt := events.ListingUpserted{ListingKey: rec.Key(), SyncedAt: time.Now().UTC()}
    if t, ok := rec.ModifiedAt(); ok { evt.ModifiedAt = &t }
    h.Pub.PublishListingUpserted(ctx, evt)
}

func sleep(ctx context.Context, d time.Duration) error {
    if d <= 0 { return ctx.Err() }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
