package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

type cleanupRequest struct {
	OlderThanHours int      `json:"older_than_hours"`
	JobIDs         []string `json:"job_ids"`
}

// Cleanup purges finished jobs and their artifacts. With job_ids it removes
// exactly those jobs; otherwise it sweeps everything finished before the
// horizon. Pending and running jobs are never touched.
func (a *App) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.OlderThanHours < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "older_than_hours must not be negative")
		return
	}

	var (
		removed int
		err     error
	)
	if len(req.JobIDs) > 0 {
		removed, err = a.Retention.Remove(r.Context(), req.JobIDs...)
	} else {
		maxAge := a.RetentionMaxAge
		if req.OlderThanHours > 0 {
			maxAge = time.Duration(req.OlderThanHours) * time.Hour
		}
		removed, err = a.Retention.Sweep(r.Context(), maxAge)
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: cleanup failed")
		a.error(w, http.StatusInternalServerError, "internal", "cleanup failed")
		return
	}

	a.json(w, http.StatusOK, map[string]int{"removed": removed})
}
