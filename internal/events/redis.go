package events

import (
	"context"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	ListingChannel   = "feedsync.listing.upserted"
	RunChannel       = "feedsync.run.completed"
	lastReportPrefix = "feedsync:last_report:"
	lastReportTTL    = 7 * 24 * time.Hour
	// listing events are skipped for this long after a failed publish
	publishCooldown = 30 * time.Second
)

// RedisClient is the subset of redisx.Client the publisher needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, payload string) error
	Set(ctx context.Context, key string, val string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// Redis publishes events on pub/sub channels and keeps the last run report
// per mode under feedsync:last_report:<mode>. Errors are logged and dropped.
// After a failed listing publish, listing events are dropped for
// publishCooldown. Run reports are always attempted.
type Redis struct {
	c    RedisClient
	log  *zap.Logger
	miss error
	now  func() time.Time

	mu    sync.Mutex
	until time.Time
}

// NewRedis wraps c. miss is the error c.Get returns for an absent key.
func NewRedis(c RedisClient, miss error, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{c: c, miss: miss, log: log.Named("events"), now: time.Now}
}

func LastReportKey(mode string) string { return lastReportPrefix + mode }

func (r *Redis) PublishListingUpserted(ctx context.Context, evt ListingUpserted) {
	r.mu.Lock()
	cooling := r.now().Before(r.until)
	r.mu.Unlock()
	if cooling {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		r.log.Warn("encode listing event", zap.Error(err))
		return
	}
	if err := r.c.Publish(ctx, ListingChannel, string(b)); err != nil {
		r.mu.Lock()
		r.until = r.now().Add(publishCooldown)
		r.mu.Unlock()
		r.log.Warn("publish listing event; pausing listing events",
			zap.String("listing_key", evt.ListingKey),
			zap.Duration("cooldown", publishCooldown),
			zap.Error(err),
		)
	}
}

func (r *Redis) PublishRunCompleted(ctx context.Context, evt RunCompleted) {
	b, err := json.Marshal(evt)
	if err != nil {
		r.log.Warn("encode run report", zap.Error(err))
		return
	}
	if err := r.c.Set(ctx, LastReportKey(evt.Mode), string(b), lastReportTTL); err != nil {
		r.log.Warn("store run report", zap.Error(err))
	}
	if err := r.c.Publish(ctx, RunChannel, string(b)); err != nil {
		r.log.Warn("publish run report", zap.Error(err))
	}
}

// LastReport returns the report stored by the previous run in mode, if any.
func (r *Redis) LastReport(ctx context.Context, mode string) (RunCompleted, bool, error) {
	raw, err := r.c.Get(ctx, LastReportKey(mode))
	if err != nil {
		if r.miss != nil && errors.Is(err, r.miss) {
			return RunCompleted{}, false, nil
		}
		return RunCompleted{}, false, err
	}
	var evt RunCompleted
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return RunCompleted{}, false, err
	}
	return evt, true, nil
}
