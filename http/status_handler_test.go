package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/feed-sync/internal/events"
	"github.com/yourorg/feed-sync/internal/metrics"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := BuildRouter(StatusDeps{}, nil)
	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestStatusReportsRuns(t *testing.T) {
	mem := events.NewInMemory()
	ctx := context.Background()
	mem.PublishRunCompleted(ctx, events.RunCompleted{Mode: "incremental", Outcome: "done", Upserted: 237})
	mem.PublishRunCompleted(ctx, events.RunCompleted{Mode: "backfill", Outcome: "fatal", Error: "auth check"})
	mem.PublishListingUpserted(ctx, events.ListingUpserted{ListingKey: "X9"})

	h := BuildRouter(StatusDeps{Runs: mem}, nil)
	rec := get(t, h, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "backfill", body.Runs[0].Mode)
	assert.Equal(t, 237, body.Runs[1].Upserted)
	assert.Equal(t, int64(1), body.UpsertedTotal)
	require.NotNil(t, body.LastUpserted)
	assert.Equal(t, "X9", body.LastUpserted.ListingKey)

	rec = get(t, h, "/status/incremental")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"done"`)

	rec = get(t, h, "/status/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyReflectsStore(t *testing.T) {
	down := BuildRouter(StatusDeps{Store: pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })}, nil)
	rec := get(t, down, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_unreachable")

	up := BuildRouter(StatusDeps{Store: pingFunc(func(context.Context) error { return nil })}, nil)
	assert.Equal(t, http.StatusOK, get(t, up, "/ready").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Upserted("incremental")

	h := BuildRouter(StatusDeps{}, reg)
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `feedsync_records_upserted_total{mode="incremental"} 1`)
}
