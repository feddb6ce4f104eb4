package domain

import "time"

// JobStatus enumerates simulation job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether a status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PotentialFile is an uploaded interatomic-potential file. Immutable once
// created; referenced by zero or more simulation inputs.
type PotentialFile struct {
	ID          string
	Filename    string
	Content     string
	StoragePath string
	CreatedAt   time.Time
}

// SimulationInput is an immutable snapshot of a submitted input script.
type SimulationInput struct {
	ID              string
	Name            string
	Content         string
	PotentialFileID *string
	CreatedAt       time.Time
}

// SimulationJob tracks one run of an input script through the pipeline.
// A job is created pending, moves to running when the engine is invoked,
// and ends completed with populated series and counts or failed with an
// error message and no series.
type SimulationJob struct {
	ID                   string
	InputID              string
	Status               JobStatus
	MSD                  []float64
	KineticEnergy        []float64
	Frames               int
	Atoms                int
	ErrorMessage         string
	TrajectoryArtifactID *string
	CreatedAt            time.Time
	StartedAt            *time.Time
	FinishedAt           *time.Time
	UpdatedAt            time.Time
}

// JobResult carries the successful outcome of a pipeline run: the derived
// series, their dimensions, and the archived trajectory's id.
type JobResult struct {
	MSD                  []float64
	KineticEnergy        []float64
	Frames               int
	Atoms                int
	TrajectoryArtifactID string
}
