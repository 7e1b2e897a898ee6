package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/feed-sync/feed"
	"github.com/yourorg/feed-sync/internal/config"
	"github.com/yourorg/feed-sync/internal/env"
)

type fakePinger struct {
	err   error
	calls *[]string
	name  string
}

func (f fakePinger) Ping(context.Context) error {
	*f.calls = append(*f.calls, f.name+".ping")
	return f.err
}

type fakeStore struct {
	fakePinger
	migrateErr error
}

func (f fakeStore) Migrate(context.Context) error {
	*f.calls = append(*f.calls, "store.migrate")
	return f.migrateErr
}

func TestPreflightChecksFeedBeforeStore(t *testing.T) {
	var calls []string
	fd := fakePinger{name: "feed", calls: &calls, err: feed.ErrAuthentication}
	st := fakeStore{fakePinger: fakePinger{name: "store", calls: &calls}}

	err := preflight(context.Background(), fd, st, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrAuthentication)
	assert.Contains(t, err.Error(), "auth check")
	assert.Equal(t, []string{"feed.ping"}, calls)
}

func TestPreflightMigratesAfterPings(t *testing.T) {
	var calls []string
	fd := fakePinger{name: "feed", calls: &calls}
	st := fakeStore{fakePinger: fakePinger{name: "store", calls: &calls}}

	require.NoError(t, preflight(context.Background(), fd, st, true))
	assert.Equal(t, []string{"feed.ping", "store.ping", "store.migrate"}, calls)

	calls = nil
	require.NoError(t, preflight(context.Background(), fd, st, false))
	assert.Equal(t, []string{"feed.ping", "store.ping"}, calls)

	calls = nil
	st.migrateErr = errors.New("permission denied")
	err := preflight(context.Background(), fd, st, true)
	assert.ErrorContains(t, err, "store migrate")
}

func TestBackfillFlagsOverrideEnv(t *testing.T) {
	vals := map[string]string{
		"FEED_BASE_URL": "https://feed.example.com/odata",
		"FEED_TOKEN":    "t0ken",
		"STORE_URL":     "postgres://localhost/listings",
		"STORE_KEY":     "k",
		"BACKFILL":      "true",
	}
	src := func(k string) (string, bool) {
		v, ok := vals[k]
		return v, ok
	}

	cfg, err := config.FromEnv(env.Overlay(src, backfillOverrides(1, 5)))
	require.NoError(t, err)
	assert.Equal(t, config.ModeBackfill, cfg.Mode)
	assert.Equal(t, 1, cfg.StartPage)
	assert.Equal(t, 5, cfg.EndPage)

	cfg, err = config.FromEnv(env.Overlay(src, incrementalOverrides()))
	require.NoError(t, err)
	assert.Equal(t, config.ModeIncremental, cfg.Mode)
}
