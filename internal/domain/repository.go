package domain

import (
	"context"
	"time"
)

// PotentialFileRepository defines persistence for uploaded potential files.
type PotentialFileRepository interface {
	Create(ctx context.Context, file *PotentialFile) error
	GetByID(ctx context.Context, id string) (*PotentialFile, error)
}

// SimulationInputRepository defines persistence for input-script snapshots.
type SimulationInputRepository interface {
	Create(ctx context.Context, input *SimulationInput) error
	GetByID(ctx context.Context, id string) (*SimulationInput, error)
}

// SimulationJobRepository defines persistence for simulation jobs.
type SimulationJobRepository interface {
	Create(ctx context.Context, job *SimulationJob) error
	GetByID(ctx context.Context, id string) (*SimulationJob, error)

	// Claim atomically moves the oldest pending job to running and returns
	// it together with its input, or ErrJobNotClaimed when none is pending.
	Claim(ctx context.Context) (*SimulationJob, *SimulationInput, error)

	// Complete and Fail finalize a running job. Both are no-ops on jobs
	// already in a terminal state: terminal records are immutable.
	Complete(ctx context.Context, jobID string, result *JobResult) error
	Fail(ctx context.Context, jobID string, failure *Failure) error

	// ListExpired returns terminal jobs finished before the cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]SimulationJob, error)
	Delete(ctx context.Context, jobID string) (bool, error)
}
