package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sbc-engine/internal/httpapi"
)

func TestNewRouter_RoutesAllThreeEndpoints(t *testing.T) {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Stats:  fakeStats{stats: httpapi.Stats{SimpleRecords: 2}},
		Logger: zerolog.Nop(),
	})

	for _, path := range []string{"/healthz", "/stats", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestNewRouter_UnknownPathReturns404(t *testing.T) {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Stats:  fakeStats{},
		Logger: zerolog.Nop(),
	})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
