package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mdserver/internal/domain"
)

// TrajectoriesGet streams the raw trajectory text for an archived run. The
// artifact is stored compressed; the store hands back plain text.
func (a *App) TrajectoriesGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rc, err := a.Artifacts.OpenTrajectory(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "trajectory not found")
			return
		}
		a.Logger.Error().Err(err).Str("artifact_id", id).Msg("handlers: open trajectory failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to open trajectory")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".dump"))
	if _, err := io.Copy(w, rc); err != nil {
		a.Logger.Warn().Err(err).Str("artifact_id", id).Msg("handlers: trajectory stream interrupted")
	}
}
