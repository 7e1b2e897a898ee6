// Package metrics exposes sync progress as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedsync"

// Sync holds the collectors one process records into.
type Sync struct {
	PagesFetched     *prometheus.CounterVec
	RecordsUpserted  *prometheus.CounterVec
	RecordsFailed    *prometheus.CounterVec
	MediaErrors      *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	WatermarkSeconds prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Sync {
	f := promauto.With(reg)
	return &Sync{
		PagesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pages_fetched_total",
			Help: "Listing pages fetched from the feed.",
		}, []string{"mode"}),
		RecordsUpserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_upserted_total",
			Help: "Listings written to the store.",
		}, []string{"mode"}),
		RecordsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_failed_total",
			Help: "Listings skipped after exhausting store retries.",
		}, []string{"mode"}),
		MediaErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "media_errors_total",
			Help: "Media lookups that failed and degraded to no images.",
		}, []string{"mode"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Finished sync runs by outcome.",
		}, []string{"mode", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Wall time of sync runs.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"mode"}),
		WatermarkSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "watermark_timestamp_seconds",
			Help: "Unix time of the watermark read at the start of the last run.",
		}),
	}
}

// ObserveRun records the outcome of a finished run.
func (s *Sync) ObserveRun(mode, outcome string, elapsed time.Duration, watermark *time.Time) {
	if s == nil {
		return
	}
	s.Runs.WithLabelValues(mode, outcome).Inc()
	s.RunDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if watermark != nil {
		s.WatermarkSeconds.Set(float64(watermark.Unix()))
	}
}

func (s *Sync) PageFetched(mode string) {
	if s != nil {
		s.PagesFetched.WithLabelValues(mode).Inc()
	}
}

func (s *Sync) Upserted(mode string) {
	if s != nil {
		s.RecordsUpserted.WithLabelValues(mode).Inc()
	}
}

func (s *Sync) Failed(mode string) {
	if s != nil {
		s.RecordsFailed.WithLabelValues(mode).Inc()
	}
}

func (s *Sync) MediaError(mode string) {
	if s != nil {
		s.MediaErrors.WithLabelValues(mode).Inc()
	}
}
