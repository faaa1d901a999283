package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/characters", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/characters", http.StatusOK, 30*time.Millisecond)
	m.ObserveGeneration("character", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/characters", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("character", "ok")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "lorecrafter_http_requests_total"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.ObserveGeneration("location", "ok")
	})
}
