package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"mdserver/internal/domain"
	"mdserver/internal/infra"
)

// DumpFormat identifies which native format a produced file is in.
type DumpFormat string

const (
	FormatCustomDump DumpFormat = "dump"
	FormatXYZ        DumpFormat = "xyz"
)

// RunOutput names the dump files a successful run produced. VelocityPath is
// set only when velocities live in a separate custom dump that must be merged
// into the primary trajectory.
type RunOutput struct {
	TrajectoryPath string
	Format         DumpFormat
	VelocityPath   string
	Elapsed        time.Duration
}

// Runner executes the simulation engine against a staged job. One invocation
// per job; failures are terminal, no retries.
type Runner struct {
	Exec    Executor
	Timeout time.Duration
	Logger  infra.Logger
}

const stderrTailLimit = 2000

// Run spawns the engine in the job's working directory under a wall-clock
// timeout. Success requires exit code zero and at least one non-empty dump
// file; anything else maps onto the engine/timeout/output_missing failure
// kinds.
func (r *Runner) Run(ctx context.Context, jc *JobContext) (*RunOutput, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	r.Logger.Info().Str("job_id", jc.JobID).Str("workdir", jc.WorkDir).Msg("engine: starting run")

	res, err := r.Exec.Run(runCtx, jc.WorkDir, []string{"-in", jc.ScriptPath})
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.Failf(domain.FailTimeout,
				"engine exceeded %s wall-clock limit and was terminated", timeout)
		}
		if errors.Is(err, context.Canceled) {
			return nil, domain.Failf(domain.FailCancelled, "run cancelled")
		}
		return nil, domain.Failf(domain.FailEngine, "engine could not be started: %v", err)
	}
	if res.ExitCode != 0 {
		return nil, domain.Failf(domain.FailEngine,
			"engine exited with code %d: %s", res.ExitCode, tail(res.Stderr, stderrTailLimit))
	}

	out := &RunOutput{Elapsed: elapsed}
	custom := usable(jc.WorkDir, jc.Dumps.Velocity)
	xyz := usable(jc.WorkDir, jc.Dumps.XYZ)
	switch {
	case custom != "" && (jc.Dumps.VelocityHasPositions || xyz == ""):
		out.TrajectoryPath, out.Format = custom, FormatCustomDump
	case xyz != "":
		out.TrajectoryPath, out.Format = xyz, FormatXYZ
		if custom != "" {
			out.VelocityPath = custom
		}
	default:
		out.TrajectoryPath, out.Format = scanForDump(jc.WorkDir)
	}
	if out.TrajectoryPath == "" {
		return nil, domain.Failf(domain.FailOutputMissing,
			"engine exited cleanly but produced no non-empty dump file")
	}

	r.Logger.Info().Str("job_id", jc.JobID).Dur("elapsed", elapsed).
		Str("trajectory", out.TrajectoryPath).Msg("engine: run finished")
	return out, nil
}

func usable(workDir, name string) string {
	if name == "" {
		return ""
	}
	p := filepath.Join(workDir, filepath.Base(name))
	if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		return p
	}
	return ""
}

// scanForDump falls back to any dump-looking file when the script's dump
// declarations could not be matched to an output.
func scanForDump(workDir string) (string, DumpFormat) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", ""
	}
	for _, e := range entries {
		name := e.Name()
		if name == inputFileName || e.IsDir() {
			continue
		}
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".xyz") {
			if p := usable(workDir, name); p != "" {
				return p, FormatXYZ
			}
		}
		if strings.Contains(lower, "dump") {
			if p := usable(workDir, name); p != "" {
				return p, FormatCustomDump
			}
		}
	}
	return "", ""
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	// Never cut a multi-byte rune in half.
	cut := len(s) - limit
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "..." + s[cut:]
}
