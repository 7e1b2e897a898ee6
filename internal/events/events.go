package events

import (
    "context"
    "sync"
    "time"
)

// ListingUpserted is emitted after a listing row was written.
type ListingUpserted struct {
    ListingKey string     `json:"listing_key"`
    ModifiedAt *time.Time `json:"modified_at,omitempty"`
    SyncedAt   time.Time  `json:"synced_at"`
}

// RunCompleted summarizes one finished sync run, whatever its outcome.
type RunCompleted struct {
    Mode        string     `json:"mode"`
    Outcome     string     `json:"outcome"`
    Pages       int        `json:"pages"`
    Fetched     int        `json:"fetched"`
    Upserted    int        `json:"upserted"`
    Failed      int        `json:"failed"`
    MediaErrors int        `json:"media_errors"`
    Watermark   *time.Time `json:"watermark,omitempty"`
    Error       string     `json:"error,omitempty"`
    StartedAt   time.Time  `json:"started_at"`
    FinishedAt  time.Time  `json:"finished_at"`
}

// Publisher fans sync progress out to observers. Implementations must not
// block the sync and must not fail it.
type Publisher interface {
    PublishListingUpserted(ctx context.Context, evt ListingUpserted)
    PublishRunCompleted(ctx context.Context, evt RunCompleted)
}

// InMemory keeps the latest run per mode and a running upsert count; the
// status endpoint reads from it.
type InMemory struct {
    mu       sync.RWMutex
    runs     map[string]RunCompleted
    upserted int64
    last     ListingUpserted
}

func NewInMemory() *InMemory { return &InMemory{runs: map[string]RunCompleted{}} }

func (m *InMemory) PublishListingUpserted(_ context.Context, evt ListingUpserted) {
    m.mu.Lock()
    m.upserted++
    m.last = evt
    m.mu.Unlock()
}

func (m *InMemory) PublishRunCompleted(_ context.Context, evt RunCompleted) {
    m.mu.Lock()
    m.runs[evt.Mode] = evt
    m.mu.Unlock()
}

func (m *InMemory) LastRun(mode string) (RunCompleted, bool) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    r, ok := m.runs[mode]
    return r, ok
}

func (m *InMemory) Runs() []RunCompleted {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]RunCompleted, 0, len(m.runs))
    for _, r := range m.runs { out = append(out, r) }
    return out
}

// Upserted returns the number of listings written since start and the most recent one.
func (m *InMemory) Upserted() (int64, ListingUpserted) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return m.upserted, m.last
}

type multi []Publisher

// Multi publishes every event to each non-nil publisher in order.
func Multi(pubs ...Publisher) Publisher {
    out := make(multi, 0, len(pubs))
    for _, p := range pubs {
        if p != nil { out = append(out, p) }
    }
    return out
}

func (m multi) PublishListingUpserted(ctx context.Context, evt ListingUpserted) {
    for _, p := range m { p.PublishListingUpserted(ctx, evt) }
}

func (m multi) PublishRunCompleted(ctx context.Context, evt RunCompleted) {
    for _, p := range m { p.PublishRunCompleted(ctx, evt) }
}
