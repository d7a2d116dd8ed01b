package handlers

import (
	"encoding/json"
	"net/http"

	"dispatch/internal/generation"
	"dispatch/internal/infra"
)

// App bundles everything the HTTP handlers need.
type App struct {
	Router *generation.Router
	Pod    generation.PodBackend // nil when no pod is configured
	Logger infra.Logger
}

func NewApp(router *generation.Router, pod generation.PodBackend, logger infra.Logger) *App {
	return &App{Router: router, Pod: pod, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
