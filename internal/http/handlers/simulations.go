package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mdserver/internal/domain"
	"mdserver/internal/script"
)

const maxScriptBytes = 1 << 20

type simulationSubmitRequest struct {
	ScriptContent   string  `json:"script_content"`
	PotentialFileID *string `json:"potential_file_id"`
	Name            string  `json:"name"`
}

type simulationResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`

	MSD                  []float64 `json:"msd,omitempty"`
	KineticEnergy        []float64 `json:"kinetic_energy,omitempty"`
	Frames               int       `json:"frames,omitempty"`
	Atoms                int       `json:"atoms,omitempty"`
	TrajectoryArtifactID string    `json:"trajectory_artifact_id,omitempty"`

	Error string `json:"error,omitempty"`
}

// SimulationsSubmit validates the script, snapshots it as an immutable input,
// and enqueues a pending job. Execution is asynchronous; the response carries
// the id to poll. Validation and potential-resolution problems are reported
// here, before any job exists.
func (a *App) SimulationsSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScriptBytes)
	var req simulationSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if err := script.Validate(req.ScriptContent); err != nil {
		var f *domain.Failure
		if errors.As(err, &f) {
			a.error(w, http.StatusBadRequest, string(f.Kind), f.Message)
			return
		}
		a.error(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	if req.PotentialFileID != nil && *req.PotentialFileID != "" {
		if _, err := a.Potentials.GetByID(r.Context(), *req.PotentialFileID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				a.error(w, http.StatusNotFound, "not_found", "potential file not found")
				return
			}
			a.Logger.Error().Err(err).Msg("handlers: potential lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to resolve potential file")
			return
		}
	} else {
		req.PotentialFileID = nil
	}

	now := time.Now().UTC()
	input := &domain.SimulationInput{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Content:         req.ScriptContent,
		PotentialFileID: req.PotentialFileID,
		CreatedAt:       now,
	}
	if err := a.Inputs.Create(r.Context(), input); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: persist input failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store input")
		return
	}

	job := &domain.SimulationJob{
		ID:        uuid.NewString(),
		InputID:   input.ID,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: persist job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue job")
		return
	}

	a.json(w, http.StatusAccepted, simulationResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// SimulationsGet reports a job's current state. Completed jobs carry the
// result series and the trajectory artifact id; failed jobs carry only the
// error text. The two never appear together.
func (a *App) SimulationsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "simulation job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	resp := simulationResponse{JobID: job.ID, Status: string(job.Status)}
	switch job.Status {
	case domain.JobStatusCompleted:
		resp.MSD = job.MSD
		resp.KineticEnergy = job.KineticEnergy
		resp.Frames = job.Frames
		resp.Atoms = job.Atoms
		if job.TrajectoryArtifactID != nil {
			resp.TrajectoryArtifactID = *job.TrajectoryArtifactID
		}
	case domain.JobStatusFailed:
		resp.Error = job.ErrorMessage
	}
	a.json(w, http.StatusOK, resp)
}
