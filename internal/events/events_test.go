package events

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRedis struct {
	published map[string][]string
	set       map[string]string
	ttl       time.Duration
	err       error
	calls     int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{published: map[string][]string{}, set: map[string]string{}}
}

func (f *fakeRedis) Publish(_ context.Context, channel, payload string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

var errMiss = errors.New("miss")

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.set[key]
	if !ok {
		return "", errMiss
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key, val string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.set[key] = val
	f.ttl = ttl
	return nil
}

func TestInMemoryKeepsLatestRunPerMode(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()

	m.PublishRunCompleted(ctx, RunCompleted{Mode: "incremental", Upserted: 1})
	m.PublishRunCompleted(ctx, RunCompleted{Mode: "incremental", Upserted: 2})
	m.PublishRunCompleted(ctx, RunCompleted{Mode: "backfill", Upserted: 9})

	r, ok := m.LastRun("incremental")
	require.True(t, ok)
	assert.Equal(t, 2, r.Upserted)
	assert.Len(t, m.Runs(), 2)

	_, ok = m.LastRun("other")
	assert.False(t, ok)
}

func TestInMemoryCountsUpserts(t *testing.T) {
	m := NewInMemory()
	m.PublishListingUpserted(context.Background(), ListingUpserted{ListingKey: "A"})
	m.PublishListingUpserted(context.Background(), ListingUpserted{ListingKey: "B"})
	n, last := m.Upserted()
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "B", last.ListingKey)
}

func TestMultiSkipsNil(t *testing.T) {
	a, b := NewInMemory(), NewInMemory()
	p := Multi(a, nil, b)
	p.PublishListingUpserted(context.Background(), ListingUpserted{ListingKey: "A"})
	na, _ := a.Upserted()
	nb, _ := b.Upserted()
	assert.Equal(t, int64(1), na)
	assert.Equal(t, int64(1), nb)
}

func TestRedisPublisher(t *testing.T) {
	fr := newFakeRedis()
	p := NewRedis(fr, errMiss, nil)
	ctx := context.Background()

	p.PublishListingUpserted(ctx, ListingUpserted{ListingKey: "X1"})
	require.Len(t, fr.published[ListingChannel], 1)
	var evt ListingUpserted
	require.NoError(t, json.Unmarshal([]byte(fr.published[ListingChannel][0]), &evt))
	assert.Equal(t, "X1", evt.ListingKey)

	p.PublishRunCompleted(ctx, RunCompleted{Mode: "backfill", Outcome: "done", Upserted: 300})
	assert.Contains(t, fr.set[LastReportKey("backfill")], `"upserted":300`)
	assert.Equal(t, lastReportTTL, fr.ttl)
	assert.Len(t, fr.published[RunChannel], 1)
}

func TestListingUpsertedOmitsUnknownModification(t *testing.T) {
	fr := newFakeRedis()
	p := NewRedis(fr, errMiss, nil)
	ctx := context.Background()

	p.PublishListingUpserted(ctx, ListingUpserted{ListingKey: "X1", SyncedAt: time.Now()})
	require.Len(t, fr.published[ListingChannel], 1)
	assert.NotContains(t, fr.published[ListingChannel][0], "modified_at")

	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.PublishListingUpserted(ctx, ListingUpserted{ListingKey: "X2", ModifiedAt: &mod})
	require.Len(t, fr.published[ListingChannel], 2)
	assert.Contains(t, fr.published[ListingChannel][1], `"modified_at":"2024-05-01T12:00:00Z"`)
}

func TestRedisPublisherSwallowsErrors(t *testing.T) {
	fr := newFakeRedis()
	fr.err = errors.New("connection refused")
	core, logs := observer.New(zap.WarnLevel)
	p := NewRedis(fr, errMiss, zap.New(core))

	assert.NotPanics(t, func() {
		p.PublishListingUpserted(context.Background(), ListingUpserted{ListingKey: "X1"})
		p.PublishRunCompleted(context.Background(), RunCompleted{Mode: "incremental"})
	})
	assert.Equal(t, 3, logs.Len())
}

func TestRedisListingEventsPauseAfterFailure(t *testing.T) {
	fr := newFakeRedis()
	fr.err = errors.New("i/o timeout")
	core, logs := observer.New(zap.WarnLevel)
	p := NewRedis(fr, errMiss, zap.New(core))
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	for _, k := range []string{"X1", "X2", "X3", "X4"} {
		p.PublishListingUpserted(ctx, ListingUpserted{ListingKey: k})
	}
	assert.Equal(t, 1, fr.calls)
	assert.Equal(t, 1, logs.Len())

	p.PublishRunCompleted(ctx, RunCompleted{Mode: "incremental"})
	assert.Equal(t, 2, fr.calls)

	fr.err = nil
	clock = clock.Add(publishCooldown + time.Second)
	p.PublishListingUpserted(ctx, ListingUpserted{ListingKey: "X5"})
	assert.Equal(t, 3, fr.calls)
	assert.Len(t, fr.published[ListingChannel], 1)
}

func TestRedisLastReportRoundTrip(t *testing.T) {
	fr := newFakeRedis()
	p := NewRedis(fr, errMiss, nil)
	ctx := context.Background()

	_, ok, err := p.LastReport(ctx, "incremental")
	require.NoError(t, err)
	assert.False(t, ok)

	p.PublishRunCompleted(ctx, RunCompleted{Mode: "incremental", Outcome: "refused"})
	got, ok, err := p.LastReport(ctx, "incremental")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "refused", got.Outcome)

	fr.err = errors.New("i/o timeout")
	_, _, err = p.LastReport(ctx, "incremental")
	assert.Error(t, err)
}
