// Package metrics exposes the scrub engine's prometheus instrumentation:
// per-pass throughput counters and the store's current composition.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChunksScrubbed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sbc_chunks_scrubbed_total",
		Help: "Total number of pending CDC chunks processed by a scrub pass",
	})
	ChunksUnprocessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sbc_chunks_unprocessed_total",
		Help: "Total number of chunks left unprocessed after a storage-insert retry failed",
	})
	BytesStoredRaw = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sbc_scrub_bytes_raw_total",
		Help: "Total bytes stored as Simple (full-chunk) records",
	})
	BytesStoredDelta = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sbc_scrub_bytes_delta_total",
		Help: "Total bytes stored as Delta opcode streams",
	})
	ClustersFormed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sbc_scrub_clusters_total",
		Help: "Total number of clusters formed across all scrub passes",
	})
	ScrubDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sbc_scrub_duration_seconds",
		Help:    "Wall-clock duration of a full scrub pass",
		Buckets: prometheus.DefBuckets,
	})
	StoreSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sbc_store_records",
		Help: "Current number of stored records by chunk kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		ChunksScrubbed,
		ChunksUnprocessed,
		BytesStoredRaw,
		BytesStoredDelta,
		ClustersFormed,
		ScrubDuration,
		StoreSize,
	)
}
