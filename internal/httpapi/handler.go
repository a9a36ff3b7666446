// Package httpapi exposes the scrub engine's operational surface: a
// liveness probe, a snapshot of store composition and the last scrub
// pass's measurements, and the prometheus metrics endpoint.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// ScrubSummary mirrors scrub.ScrubMeasurements without the generic
// signature parameter, so it can sit on a plain (non-generic) HTTP
// response type.
type ScrubSummary struct {
	BytesLeftRaw int64 `json:"bytes_left_raw"`
	BytesDelta   int64 `json:"bytes_delta"`
	Unprocessed  int   `json:"unprocessed"`
	Clusters     int   `json:"clusters"`
}

// Stats is the snapshot served at GET /stats.
type Stats struct {
	SimpleRecords int           `json:"simple_records"`
	DeltaRecords  int           `json:"delta_records"`
	LastScrub     *ScrubSummary `json:"last_scrub,omitempty"`
}

// StatsProvider supplies the current store/scrub snapshot. cmd/sbc-scrub
// implements this over its concrete SBCMap instantiation.
type StatsProvider interface {
	Stats() Stats
}

// Handler serves the engine's status endpoints.
type Handler struct {
	stats  StatsProvider
	logger zerolog.Logger
}

// NewHandler builds a Handler bound to stats.
func NewHandler(stats StatsProvider, logger zerolog.Logger) *Handler {
	return &Handler{stats: stats, logger: logger.With().Str("component", "httpapi").Logger()}
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// HandleHealthz reports liveness unconditionally: the process being able
// to answer HTTP at all is the health signal. Store/filesystem
// availability is the surrounding host's concern, not this process's.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStats reports the current store composition and the most recent
// scrub pass's measurements.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.stats.Stats())
}
