package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelter-dev/smelter/internal/history"
)

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHandlerHealth(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	var status Status
	code := getJSON(t, srv.URL+"/health", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 0, status.Runs)
	assert.Nil(t, status.LastRun)

	d.execute(context.Background(), history.TriggerCLI, true)

	code = getJSON(t, srv.URL+"/health", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, status.Runs)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, 1, status.LastRun.Generated)
	assert.NotEmpty(t, status.LastRun.ExecutionID)
}

func TestHandlerReady(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	var body map[string]bool
	code := getJSON(t, srv.URL+"/ready", &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, body["ready"])

	d.setReady(true)
	code = getJSON(t, srv.URL+"/ready", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body["ready"])
}

func TestHandlerMetrics(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	d.execute(context.Background(), history.TriggerCLI, true)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "smelter_runs_total 1")
	assert.Contains(t, body, "smelter_runs_failed_total 0")
	assert.Contains(t, body, "smelter_files_watched 1")
	assert.Contains(t, body, "smelter_run_duration_seconds_count 1")
}

func TestHandlerRegenerateRequiresAuth(t *testing.T) {
	hash, err := HashToken("control-token")
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.TokenHash = hash
	d := newTestDaemon(t, cfg)
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/regenerate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, d.runCh)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/regenerate", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer control-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var result ControlResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "queued", result.Status)

	queued := <-d.runCh
	assert.Equal(t, history.TriggerDaemon, queued.trigger)
	assert.True(t, queued.force)
}

func TestHandlerRegenerateOpenWithoutAuth(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/regenerate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Len(t, d.runCh, 1)
}

func TestHandlerWebSocket(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	assert.Eventually(t, func() bool {
		return d.hub.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
