package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the direct pod backend is reachable. Operators use
// this to decide whether pod submission is worth attempting at all.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	if a.Pod == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ok", "pod": "unconfigured"})
		return
	}
	if !a.Pod.CheckReady(r.Context()) {
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "pod": "unreachable"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "pod": "ready"})
}
