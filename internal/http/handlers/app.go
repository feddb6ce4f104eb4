package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"mdserver/internal/domain"
	"mdserver/internal/infra"
	"mdserver/internal/storage"
)

// App bundles everything the HTTP handlers need: the repositories, the
// artifact store, and the retention sweeper. Execution itself happens in the
// worker binary; the API only records work and reports on it.
type App struct {
	Potentials domain.PotentialFileRepository
	Inputs     domain.SimulationInputRepository
	Jobs       domain.SimulationJobRepository
	Artifacts  *storage.ArtifactStore
	Retention  *storage.Retention

	// RetentionMaxAge is the default cleanup horizon when a cleanup request
	// does not name one.
	RetentionMaxAge time.Duration

	Logger infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}
