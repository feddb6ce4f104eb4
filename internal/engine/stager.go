package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"mdserver/internal/script"
)

const inputFileName = "input.lammps"

// JobContext describes a staged job: its exclusive working directory, the
// written script, and the dump outputs the script declares.
type JobContext struct {
	JobID      string
	WorkDir    string
	ScriptPath string
	Dumps      script.DumpFiles
	Units      string
}

// Stager allocates working directories and writes input scripts.
type Stager struct {
	BaseDir string
}

// Stage validates the script, allocates an exclusive working directory for
// the job, and writes the (mass-normalized) script into it. The directory is
// keyed by job id and never reused: a collision means a duplicate job id and
// is an error, not something to recover from.
func (s *Stager) Stage(jobID, scriptContent string) (*JobContext, error) {
	if err := script.Validate(scriptContent); err != nil {
		return nil, err
	}
	scriptContent = script.EnsureMasses(scriptContent)

	jobsDir := filepath.Join(s.BaseDir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure jobs dir: %w", err)
	}
	workDir := filepath.Join(jobsDir, jobID)
	if err := os.Mkdir(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("allocate working dir: %w", err)
	}

	scriptPath := filepath.Join(workDir, inputFileName)
	if err := os.WriteFile(scriptPath, []byte(scriptContent), 0o644); err != nil {
		return nil, fmt.Errorf("write input script: %w", err)
	}

	return &JobContext{
		JobID:      jobID,
		WorkDir:    workDir,
		ScriptPath: scriptPath,
		Dumps:      script.ExtractDumpFiles(scriptContent),
		Units:      script.Units(scriptContent),
	}, nil
}

// Discard removes a job's working directory. Used after the trajectory has
// been persisted, and by retention sweeps.
func (s *Stager) Discard(jobID string) error {
	if jobID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.BaseDir, "jobs", jobID))
}
