package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

var (
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "romart_lookups_total",
		Help: "Image resolution attempts per strategy and outcome.",
	}, []string{"strategy", "outcome"}) // outcome: hit, miss, error

	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "romart_downloads_total",
		Help: "HTTP downloads performed, by kind (image, index) and status.",
	}, []string{"kind", "status"})

	HashDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "romart_hash_duration_seconds",
		Help:    "Time spent hashing ROM contents.",
		Buckets: prometheus.DefBuckets,
	}, []string{"algorithm"})

	IndexRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "romart_hash_index_rows",
		Help: "Rows scanned during the most recent hash index lookup.",
	})
)

// RecordLookup counts a single strategy attempt.
func RecordLookup(strategy, outcome string) {
	Lookups.WithLabelValues(strategy, outcome).Inc()
}

// RecordDownload counts a download; status is "ok" or "error".
func RecordDownload(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	Downloads.WithLabelValues(kind, status).Inc()
}

// RecordHashDuration observes the time since start for the given algorithm.
func RecordHashDuration(algorithm string, start time.Time) {
	HashDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
