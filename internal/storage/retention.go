package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mdserver/internal/domain"
	"mdserver/internal/infra"
)

// WorkdirReclaimer releases a job's working directory.
type WorkdirReclaimer interface {
	Discard(jobID string) error
}

// Retention purges aged jobs and their artifacts. It only ever touches jobs
// in a terminal state; records still pending or running are left alone no
// matter their age, which closes the race against an active pipeline run.
type Retention struct {
	Jobs      domain.SimulationJobRepository
	Artifacts *ArtifactStore
	Workdirs  WorkdirReclaimer
	Logger    infra.Logger
}

// Sweep removes every terminal job that finished before now-maxAge, together
// with its trajectory artifact and working directory. It returns the number
// of jobs actually removed; a repeated sweep over the same window is a no-op
// and returns zero.
func (r *Retention) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	expired, err := r.Jobs.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired jobs: %w", err)
	}
	removed := 0
	for i := range expired {
		ok, err := r.remove(ctx, &expired[i])
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Remove purges the given jobs regardless of age. Unknown ids and jobs
// already purged are skipped; jobs not yet terminal are refused silently so
// an administrative cleanup can never destroy an active run.
func (r *Retention) Remove(ctx context.Context, jobIDs ...string) (int, error) {
	removed := 0
	for _, id := range jobIDs {
		job, err := r.Jobs.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("load job %s: %w", id, err)
		}
		ok, err := r.remove(ctx, job)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (r *Retention) remove(ctx context.Context, job *domain.SimulationJob) (bool, error) {
	if !job.Status.Terminal() {
		return false, nil
	}
	if job.TrajectoryArtifactID != nil {
		if _, err := r.Artifacts.RemoveTrajectory(ctx, *job.TrajectoryArtifactID); err != nil {
			return false, err
		}
	}
	if r.Workdirs != nil {
		if err := r.Workdirs.Discard(job.ID); err != nil {
			r.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("retention: discard workdir failed")
		}
	}
	deleted, err := r.Jobs.Delete(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("delete job %s: %w", job.ID, err)
	}
	if deleted {
		r.Logger.Info().Str("job_id", job.ID).Msg("retention: job purged")
	}
	return deleted, nil
}
