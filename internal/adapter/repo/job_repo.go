package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mdserver/internal/domain"
)

// SimulationJobRepositoryPG implements domain.SimulationJobRepository.
type SimulationJobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSimulationJobRepository creates a job repository backed by PostgreSQL.
func NewSimulationJobRepository(pool *pgxpool.Pool) *SimulationJobRepositoryPG {
	return &SimulationJobRepositoryPG{pool: pool}
}

// Create inserts a new pending job.
func (r *SimulationJobRepositoryPG) Create(ctx context.Context, job *domain.SimulationJob) error {
	query := `
INSERT INTO simulation_jobs (id, input_id, status)
VALUES ($1, $2, $3);
`
	_, err := r.pool.Exec(ctx, query, job.ID, job.InputID, job.Status)
	return err
}

const jobColumns = `
id, input_id, status, msd, kinetic_energy, frames, atoms, error_message,
trajectory_artifact_id, created_at, started_at, finished_at, updated_at
`

// GetByID fetches a job by its identifier.
func (r *SimulationJobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.SimulationJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM simulation_jobs WHERE id = $1;`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// Claim atomically moves the oldest pending job to running and returns it
// with its input snapshot. Concurrent workers never claim the same job.
func (r *SimulationJobRepositoryPG) Claim(ctx context.Context) (*domain.SimulationJob, *domain.SimulationInput, error) {
	query := `
WITH next_job AS (
    SELECT id
    FROM simulation_jobs
    WHERE status = 'pending'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
),
claimed AS (
    UPDATE simulation_jobs j
    SET status = 'running', started_at = now(), updated_at = now()
    WHERE j.id IN (SELECT id FROM next_job)
    RETURNING j.id, j.input_id, j.status, j.created_at
)
SELECT c.id, c.input_id, c.status, c.created_at,
       i.id, i.name, i.content, i.potential_file_id, i.created_at
FROM claimed c
JOIN simulation_inputs i ON i.id = c.input_id;
`
	row := r.pool.QueryRow(ctx, query)
	var job domain.SimulationJob
	var input domain.SimulationInput
	err := row.Scan(
		&job.ID, &job.InputID, &job.Status, &job.CreatedAt,
		&input.ID, &input.Name, &input.Content, &input.PotentialFileID, &input.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrJobNotClaimed
		}
		return nil, nil, err
	}
	return &job, &input, nil
}

// Complete finalizes a running job with its series, counts, and artifact id.
// Jobs already in a terminal state are left untouched.
func (r *SimulationJobRepositoryPG) Complete(ctx context.Context, jobID string, result *domain.JobResult) error {
	query := `
UPDATE simulation_jobs
SET status = 'completed',
    msd = $2,
    kinetic_energy = $3,
    frames = $4,
    atoms = $5,
    trajectory_artifact_id = $6,
    error_message = '',
    finished_at = now(),
    updated_at = now()
WHERE id = $1 AND status = 'running';
`
	_, err := r.pool.Exec(ctx, query,
		jobID, result.MSD, result.KineticEnergy, result.Frames, result.Atoms,
		result.TrajectoryArtifactID,
	)
	return err
}

// Fail finalizes a running or still-pending job with an error message and no
// series. Terminal records stay immutable.
func (r *SimulationJobRepositoryPG) Fail(ctx context.Context, jobID string, failure *domain.Failure) error {
	query := `
UPDATE simulation_jobs
SET status = 'failed',
    error_message = $2,
    finished_at = now(),
    updated_at = now()
WHERE id = $1 AND status IN ('pending', 'running');
`
	_, err := r.pool.Exec(ctx, query, jobID, failure.Error())
	return err
}

// ListExpired returns terminal jobs that finished before the cutoff.
func (r *SimulationJobRepositoryPG) ListExpired(ctx context.Context, cutoff time.Time) ([]domain.SimulationJob, error) {
	query := `SELECT ` + jobColumns + `
FROM simulation_jobs
WHERE status IN ('completed', 'failed') AND finished_at < $1
ORDER BY finished_at ASC;
`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.SimulationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Delete removes a job record and reports whether a row was deleted.
func (r *SimulationJobRepositoryPG) Delete(ctx context.Context, jobID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM simulation_jobs WHERE id = $1;`, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanJob(row pgx.Row) (*domain.SimulationJob, error) {
	var job domain.SimulationJob
	err := row.Scan(
		&job.ID, &job.InputID, &job.Status, &job.MSD, &job.KineticEnergy,
		&job.Frames, &job.Atoms, &job.ErrorMessage, &job.TrajectoryArtifactID,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
