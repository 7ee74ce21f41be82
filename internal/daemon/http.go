package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smelter-dev/smelter/internal/history"
)

// Handler builds the daemon's HTTP surface: health and readiness probes,
// Prometheus metrics, the authenticated regenerate trigger, and the
// WebSocket reload endpoint.
func (d *Daemon) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", d.handleHealth)
	r.Get("/ready", d.handleReady)
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())
	r.With(d.verifier.Middleware).Post("/regenerate", d.handleRegenerate)
	r.Get("/ws", d.hub.HandleWebSocket)
	return r
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.CurrentStatus())
}

func (d *Daemon) handleReady(w http.ResponseWriter, r *http.Request) {
	if !d.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (d *Daemon) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	d.Regenerate(history.TriggerDaemon, true)
	writeJSON(w, http.StatusAccepted, ControlResult{Status: "queued"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
