package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mdserver/internal/http/handlers"
	"mdserver/internal/infra"
	"mdserver/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/potentials", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		r.Post("/", app.PotentialsUpload)
	})

	r.Route("/v1/simulations", func(r chi.Router) {
		// Submissions spawn engine subprocesses; keep the submit rate low.
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).
			Post("/", app.SimulationsSubmit)
		r.Get("/{id}", app.SimulationsGet)
	})

	r.Get("/v1/trajectories/{id}", app.TrajectoriesGet)
	r.Post("/v1/cleanup", app.Cleanup)

	return r
}
