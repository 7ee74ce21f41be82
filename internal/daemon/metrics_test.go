package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveRun(t *testing.T) {
	m := NewMetrics()

	m.ObserveRun(time.Second, false)
	m.ObserveRun(2*time.Second, true)
	m.SetFilesWatched(5)
	m.SetCacheSize(5)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.runsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsFailed))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.filesWatched))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.cacheSize))
}

func TestMetricsHandlerExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun(50*time.Millisecond, false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "smelter_runs_total 1")
	assert.Contains(t, body, "smelter_runs_failed_total 0")
	assert.Contains(t, body, "smelter_run_duration_seconds_count 1")
	assert.Contains(t, body, "smelter_files_watched 0")
	assert.Contains(t, body, "smelter_cache_size 0")
}

func TestMetricsPrivateRegistries(t *testing.T) {
	// Two instances must not trip duplicate registration, which is what
	// a shared default registry would do.
	first := NewMetrics()
	second := NewMetrics()

	first.ObserveRun(time.Second, false)
	assert.Equal(t, float64(1), testutil.ToFloat64(first.runsTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(second.runsTotal))
}
