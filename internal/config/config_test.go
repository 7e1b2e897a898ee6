package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/feed-sync/internal/env"
)

func source(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"FEED_BASE_URL": "https://feed.example.com/odata/",
		"FEED_TOKEN":    "t0ken",
		"STORE_URL":     "postgres://sync@db:5432/listings",
		"STORE_KEY":     "s3cret",
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(source(baseEnv()))
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, cfg.Mode)
	assert.Equal(t, "https://feed.example.com/odata", cfg.Feed.BaseURL)
	assert.Equal(t, "Property", cfg.Feed.Resource)
	assert.Equal(t, time.Second, cfg.Feed.RetryBaseDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.RetryDelay)
	assert.True(t, cfg.Store.Migrate)
	assert.False(t, cfg.Redis.Enabled())
	assert.Zero(t, cfg.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestFromEnvBackfill(t *testing.T) {
	env := baseEnv()
	env["BACKFILL"] = "true"
	env["START_PAGE"] = "5"
	env["END_PAGE"] = "7"
	env["SYNC_PAGE_PAUSE"] = "2"
	cfg, err := FromEnv(source(env))
	require.NoError(t, err)
	assert.Equal(t, ModeBackfill, cfg.Mode)
	assert.Equal(t, 5, cfg.StartPage)
	assert.Equal(t, 7, cfg.EndPage)
	assert.Equal(t, 2*time.Second, cfg.PagePause)
}

func TestFromEnvBackfillNeedsPages(t *testing.T) {
	env := baseEnv()
	env["BACKFILL"] = "1"
	_, err := FromEnv(source(env))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "START_PAGE")
	assert.Contains(t, err.Error(), "END_PAGE")
}

func TestFromEnvReportsEveryMissingKey(t *testing.T) {
	_, err := FromEnv(source(map[string]string{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	for _, k := range []string{"FEED_BASE_URL", "FEED_TOKEN", "STORE_URL", "STORE_KEY"} {
		assert.Contains(t, err.Error(), k)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	env := baseEnv()
	env["FEED_BASE_URL"] = "feed.example.com"
	env["FEED_RPS"] = "-1"
	env["REDIS_DB"] = "zero"
	_, err := FromEnv(source(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute URL")
	assert.Contains(t, err.Error(), "FEED_RPS")
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestWithBackfillValidatesRange(t *testing.T) {
	cfg, err := FromEnv(source(baseEnv()))
	require.NoError(t, err)

	bf, err := cfg.WithBackfill(3, 9)
	require.NoError(t, err)
	assert.Equal(t, ModeBackfill, bf.Mode)
	assert.Equal(t, ModeIncremental, cfg.Mode)

	_, err = cfg.WithBackfill(0, 9)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = cfg.WithBackfill(9, 3)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWithIncrementalKeepsEnvInterval(t *testing.T) {
	env := baseEnv()
	env["SYNC_INTERVAL"] = "15m"
	cfg, err := FromEnv(source(env))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.WithIncremental(0).Interval)
	assert.Equal(t, time.Minute, cfg.WithIncremental(time.Minute).Interval)
}

func TestFlagOverlayBeatsIncompleteBackfillEnv(t *testing.T) {
	e := baseEnv()
	e["BACKFILL"] = "true"

	_, err := FromEnv(source(e))
	require.Error(t, err)

	cfg, err := FromEnv(env.Overlay(source(e), map[string]string{"START_PAGE": "1", "END_PAGE": "5"}))
	require.NoError(t, err)
	assert.Equal(t, ModeBackfill, cfg.Mode)
	assert.Equal(t, 5, cfg.EndPage)

	cfg, err = FromEnv(env.Overlay(source(e), map[string]string{"BACKFILL": "false"}))
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, cfg.Mode)
}
