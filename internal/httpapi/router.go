package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig wires a Handler into a chi mux.
type RouterConfig struct {
	Stats  StatsProvider
	Logger zerolog.Logger
}

// NewRouter builds the engine's status/metrics surface: /healthz, /stats,
// /metrics. There is no object-storage protocol surface here, this engine
// sits behind the store it deduplicates into, not in front of clients.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger.With().Str("component", "httpapi").Logger()
	h := NewHandler(cfg.Stats, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(zerologMiddleware(logger))

	r.Get("/healthz", h.HandleHealthz)
	r.Get("/stats", h.HandleStats)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// zerologMiddleware logs each request at debug level, component-scoped.
func zerologMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
