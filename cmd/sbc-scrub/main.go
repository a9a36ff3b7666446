// Package main is the scrub engine's demonstration entrypoint: load
// configuration, build the hasher/clusterer/encoder/store stack it
// names, run one scrub pass over a pending-chunk directory, then serve
// the status/metrics surface until signalled to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/sbc-engine/internal/clusterer"
	"github.com/prn-tf/sbc-engine/internal/config"
	"github.com/prn-tf/sbc-engine/internal/delta"
	"github.com/prn-tf/sbc-engine/internal/hostfs"
	"github.com/prn-tf/sbc-engine/internal/httpapi"
	"github.com/prn-tf/sbc-engine/internal/metrics"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/scrub"
	"github.com/prn-tf/sbc-engine/internal/store"
)

// Version information (set at build time).
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting SBC scrub engine")

	cfg, err := config.Load(os.Getenv("SBC_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	db, closeDB, err := openBackend(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store backend")
	}
	defer closeDB()

	targetStore := store.New[sbchash.AronovichHash](db, decoderFor(cfg.Encoder))

	s := buildScrubber(cfg, log.Logger)

	pendingDir := os.Getenv("SBC_PENDING_DIR")
	if pendingDir == "" {
		pendingDir = "./pending"
	}
	pending := hostfs.NewDirPending(pendingDir)

	reporter := &scrubReporter{store: targetStore}

	router := httpapi.NewRouter(httpapi.RouterConfig{Stats: reporter, Logger: log.Logger})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Status server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Status server failed")
		}
	}()

	go runScrubLoop(context.Background(), s, pending, targetStore, reporter, log.Logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Status server shutdown error")
	}

	log.Info().Msg("Stopped")
}

// scrubLoopInterval is how often a new scrub pass is attempted over the
// pending directory.
const scrubLoopInterval = 30 * time.Second

func runScrubLoop(ctx context.Context, s *scrub.Scrubber[sbchash.AronovichHash], pending hostfs.DirPending, targetStore *store.SBCMap[sbchash.AronovichHash], reporter *scrubReporter, logger zerolog.Logger) {
	ticker := time.NewTicker(scrubLoopInterval)
	defer ticker.Stop()

	for {
		meas, err := s.Scrub(ctx, pending, targetStore)
		if err != nil {
			logger.Error().Err(err).Msg("scrub pass failed")
		} else {
			logger.Info().
				Int64("bytes_left_raw", meas.BytesLeftRaw).
				Int64("bytes_delta", meas.BytesDelta).
				Int("unprocessed", meas.Unprocessed).
				Int("clusters", meas.Report.NumberOfClusters).
				Msg("scrub pass complete")
			reporter.record(meas)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scrubReporter adapts the most recent ScrubMeasurements and the live
// store into httpapi.Stats.
type scrubReporter struct {
	mu    sync.Mutex
	last  *httpapi.ScrubSummary
	store *store.SBCMap[sbchash.AronovichHash]
}

func (r *scrubReporter) record(meas scrub.ScrubMeasurements[sbchash.AronovichHash]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &httpapi.ScrubSummary{
		BytesLeftRaw: meas.BytesLeftRaw,
		BytesDelta:   meas.BytesDelta,
		Unprocessed:  meas.Unprocessed,
		Clusters:     meas.Report.NumberOfClusters,
	}
}

func (r *scrubReporter) Stats() httpapi.Stats {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()

	var simple, deltaCount int
	for _, rec := range r.store.Iterate() {
		if rec.Key.Type.Kind == store.ChunkSimple {
			simple++
		} else {
			deltaCount++
		}
	}
	metrics.StoreSize.WithLabelValues("simple").Set(float64(simple))
	metrics.StoreSize.WithLabelValues("delta").Set(float64(deltaCount))

	return httpapi.Stats{SimpleRecords: simple, DeltaRecords: deltaCount, LastScrub: last}
}

// buildScrubber wires the hasher/clusterer/encoder triple cfg names.
// AronovichHash is the only signature wired to a store.Database backend
// in this repo (internal/hostfs is written concretely against it), so the
// Graph clusterer is always available here. Odess is not reachable through
// this entrypoint; internal/sbchash tests the Odess hasher on its own and
// no test runs Odess together with Eq.
func buildScrubber(cfg *config.Config, logger zerolog.Logger) *scrub.Scrubber[sbchash.AronovichHash] {
	hasher := sbchash.AronovichHasher{}

	var clust clusterer.Clusterer[sbchash.AronovichHash]
	switch cfg.Clusterer.Kind {
	case "eq":
		clust = clusterer.NewEqForGraphKeyable[sbchash.AronovichHash]()
	default:
		clust = clusterer.NewGraph[sbchash.AronovichHash](cfg.Clusterer.MaxWeightEdge)
	}

	encoder, kind := encoderFor(cfg.Encoder)

	return scrub.New[sbchash.AronovichHash](
		hasher,
		clust,
		encoder,
		scrub.WithWorkers[sbchash.AronovichHash](cfg.Scrub.Workers),
		scrub.WithLogger[sbchash.AronovichHash](logger),
		scrub.WithEncoderKind[sbchash.AronovichHash](kind),
	)
}

func encoderFor(cfg config.Encoder) (delta.Encoder, delta.Kind) {
	switch cfg.Kind {
	case "xdelta":
		return delta.XdeltaEncoder{UseZstd: cfg.XdeltaZstd}, delta.KindXdelta
	case "gdelta":
		return delta.GdeltaEncoder{}, delta.KindGdelta
	case "levenshtein":
		return delta.LevenshteinEncoder{}, delta.KindLevenshtein
	default:
		return delta.ZdeltaEncoder{UseHuffman: cfg.ZdeltaHuffman}, delta.KindZdelta
	}
}

func decoderFor(cfg config.Encoder) delta.Decoder {
	switch cfg.Kind {
	case "xdelta":
		return delta.XdeltaDecoder{UseZstd: cfg.XdeltaZstd}
	case "gdelta":
		return delta.GdeltaDecoder{}
	case "levenshtein":
		return delta.LevenshteinDecoder{}
	default:
		return delta.ZdeltaDecoder{UseHuffman: cfg.ZdeltaHuffman}
	}
}

// openBackend opens the store.Database cfg.Store names, returning a
// no-op close function for backends with nothing to release.
func openBackend(cfg config.Store) (store.Database[sbchash.AronovichHash], func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "sqlite":
		db, err := hostfs.OpenSQLite(context.Background(), cfg.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite: %w", err)
		}
		return db, func() { _ = db.Close() }, nil

	case "postgres":
		db, err := hostfs.NewPostgres(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		return db, func() { db.Close() }, nil

	case "redis":
		return nil, noop, fmt.Errorf("store.backend=redis is not wired in this entrypoint; construct hostfs.NewRedis(client) directly in a fork of this entrypoint")

	case "s3":
		db, err := hostfs.NewS3(context.Background(), hostfs.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open s3: %w", err)
		}
		return db, noop, nil

	default:
		return hostfs.NewMemory(), noop, nil
	}
}
