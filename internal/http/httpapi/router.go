package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dispatch/internal/http/handlers"
	"dispatch/internal/infra"
	"dispatch/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORSOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	r.Post("/v1/generations", app.Generate)

	return r
}
