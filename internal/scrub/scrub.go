// Package scrub implements the batch conversion of CDC-deduplicated
// "Simple" chunks into similarity-clustered "Simple"+"Delta" records: hash
// every pending chunk, cluster the signatures, and fan out one encode task
// per cluster against the shared chunk store.
package scrub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/sbc-engine/internal/clusterer"
	"github.com/prn-tf/sbc-engine/internal/delta"
	"github.com/prn-tf/sbc-engine/internal/metrics"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

// DefaultWorkers is the bounded parallelism across clusters when no
// explicit worker count is configured.
const DefaultWorkers = 6

// Container is a pending CDC chunk's handle in the host filesystem: it
// exposes its raw bytes (until scrubbed) and accepts the new SBC key once
// the scrubber has decided where the chunk's data now lives.
type Container[H sbchash.Hash[H]] interface {
	// Extract returns the chunk's raw bytes. Called at most once per
	// scrub pass, before MakeTarget redirects the container.
	Extract() []byte
	// MakeTarget redirects the container to the SBC store record at key,
	// replacing its CDC-level raw-byte storage.
	MakeTarget(key store.SBCKey[H])
}

// PendingEntry pairs a pending chunk's primary (CDC-level) signature with
// its container.
type PendingEntry[H sbchash.Hash[H]] struct {
	PrimaryHash H
	Container   Container[H]
}

// PendingSource iterates the host filesystem's chunks awaiting SBC
// processing.
type PendingSource[H sbchash.Hash[H]] interface {
	IteratePending() []PendingEntry[H]
}

// ScrubMeasurements aggregates one scrub pass's effect: how many bytes
// ended up stored raw (Simple) versus as delta opcodes, how many chunks
// were left unprocessed (their bytes are counted in neither total),
// alongside the clusterer's own grouping report.
type ScrubMeasurements[H sbchash.Hash[H]] struct {
	BytesLeftRaw int64
	BytesDelta   int64
	Unprocessed  int
	Report       clusterer.Report[H]
}

// Option configures a Scrubber beyond its required collaborators.
type Option[H sbchash.Hash[H]] func(*Scrubber[H])

// WithWorkers overrides DefaultWorkers.
func WithWorkers[H sbchash.Hash[H]](n int) Option[H] {
	return func(s *Scrubber[H]) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger attaches a logger; the zero value is a disabled logger.
func WithLogger[H sbchash.Hash[H]](logger zerolog.Logger) Option[H] {
	return func(s *Scrubber[H]) { s.logger = logger }
}

// WithEncoderKind records which delta family encoder implements, so the
// Levenshtein large-chunk threshold can be applied before an encode
// attempt rather than inside every encoder implementation.
func WithEncoderKind[H sbchash.Hash[H]](kind delta.Kind) Option[H] {
	return func(s *Scrubber[H]) { s.encoderKind = kind }
}

// Scrubber runs one pass at a time: hash, cluster, bounded-parallel encode.
// It holds no store state itself; every pass is handed the store to work
// against, per design note "no module-level state".
type Scrubber[H sbchash.Hash[H]] struct {
	hasher    sbchash.Hasher[H]
	clusterer clusterer.Clusterer[H]
	encoder   delta.Encoder

	encoderKind delta.Kind
	workers     int
	logger      zerolog.Logger
}

// New constructs a Scrubber bound to hasher, clusterer and encoder.
func New[H sbchash.Hash[H]](hasher sbchash.Hasher[H], clust clusterer.Clusterer[H], encoder delta.Encoder, opts ...Option[H]) *Scrubber[H] {
	s := &Scrubber[H]{
		hasher:    hasher,
		clusterer: clust,
		encoder:   encoder,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type hashedChunk[H sbchash.Hash[H]] struct {
	entry PendingEntry[H]
	data  []byte
}

// Scrub runs one full pass: hash every pending chunk, cluster the
// signatures, and encode each cluster against targetStore. Clusters run
// concurrently bounded to s.workers; within a cluster, encoding is
// sequential. Cancellation of ctx is honoured between cluster dispatches,
// not mid-cluster.
func (s *Scrubber[H]) Scrub(ctx context.Context, pending PendingSource[H], targetStore *store.SBCMap[H]) (ScrubMeasurements[H], error) {
	start := time.Now()
	defer func() { metrics.ScrubDuration.Observe(time.Since(start).Seconds()) }()

	entries := pending.IteratePending()

	hashed := make([]hashedChunk[H], len(entries))
	points := make([]clusterer.Point[H], len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry PendingEntry[H]) {
			defer wg.Done()
			data := entry.Container.Extract()
			signature := s.hasher.Hash(data)
			hashed[i] = hashedChunk[H]{entry: entry, data: data}
			points[i] = clusterer.Point[H]{Signature: signature, Chunk: clusterer.ChunkRef{ID: i, Len: len(data)}}
		}(i, entry)
	}
	wg.Wait()

	clusters, report := s.clusterer.Clusterize(points)

	var (
		mu   sync.Mutex
		meas = ScrubMeasurements[H]{Report: report}
		g    errgroup.Group
	)
	g.SetLimit(s.workers)

	for _, cluster := range clusters {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return meas, err
		}
		cluster := cluster
		g.Go(func() error {
			left, deltaBytes, unprocessed := s.encodeCluster(targetStore, cluster, hashed)
			mu.Lock()
			meas.BytesLeftRaw += left
			meas.BytesDelta += deltaBytes
			meas.Unprocessed += unprocessed
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	metrics.ChunksScrubbed.Add(float64(len(entries)))
	metrics.ChunksUnprocessed.Add(float64(meas.Unprocessed))
	metrics.BytesStoredRaw.Add(float64(meas.BytesLeftRaw))
	metrics.BytesStoredDelta.Add(float64(meas.BytesDelta))
	metrics.ClustersFormed.Add(float64(report.NumberOfClusters))

	return meas, nil
}
