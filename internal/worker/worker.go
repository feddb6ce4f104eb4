// Package worker claims pending simulation jobs and drives them through the
// execution-and-analysis pipeline: stage, resolve, run, parse, compute,
// persist.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"mdserver/internal/analysis"
	"mdserver/internal/domain"
	"mdserver/internal/engine"
	"mdserver/internal/infra"
	"mdserver/internal/storage"
	"mdserver/internal/traj"
)

// Pipeline executes one claimed job end to end.
type Pipeline struct {
	Jobs      domain.SimulationJobRepository
	Stager    *engine.Stager
	Resolver  *engine.Resolver
	Runner    *engine.Runner
	Artifacts *storage.ArtifactStore

	// Masses overrides the per-unit-system default mass source when set.
	Masses analysis.MassSource

	Logger infra.Logger
}

// Process runs the pipeline for a claimed job and writes the terminal state.
// Every error path ends in a failed job with a populated message; results are
// all-or-nothing.
func (p *Pipeline) Process(ctx context.Context, job *domain.SimulationJob, input *domain.SimulationInput) {
	result, err := p.run(ctx, job, input)

	// The final status write must survive worker shutdown, otherwise a
	// cancelled run would stay stuck in running.
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err != nil {
		failure := domain.AsFailure(err, domain.FailInternal)
		// Cancellation can surface from any stage, not just the engine run.
		if errors.Is(err, context.Canceled) {
			failure = domain.Failf(domain.FailCancelled, "run cancelled")
		}
		p.Logger.Warn().Str("job_id", job.ID).Str("kind", string(failure.Kind)).
			Str("reason", failure.Message).Msg("worker: job failed")
		if err := p.Jobs.Fail(finalCtx, job.ID, failure); err != nil {
			p.Logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: persist failure state failed")
		}
		return
	}

	if err := p.Jobs.Complete(finalCtx, job.ID, result); err != nil {
		p.Logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: persist result failed")
		return
	}
	if err := p.Stager.Discard(job.ID); err != nil {
		p.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("worker: discard workdir failed")
	}
	p.Logger.Info().Str("job_id", job.ID).Int("frames", result.Frames).
		Int("atoms", result.Atoms).Msg("worker: job completed")
}

func (p *Pipeline) run(ctx context.Context, job *domain.SimulationJob, input *domain.SimulationInput) (*domain.JobResult, error) {
	jc, err := p.Stager.Stage(job.ID, input.Content)
	if err != nil {
		return nil, err
	}
	if err := p.Resolver.Materialize(ctx, jc, input.PotentialFileID); err != nil {
		return nil, err
	}
	out, err := p.Runner.Run(ctx, jc)
	if err != nil {
		return nil, err
	}

	frames, err := p.parse(out)
	if err != nil {
		return nil, err
	}

	masses := p.Masses
	if masses == nil {
		masses = analysis.DefaultMasses(jc.Units)
	}
	res, err := analysis.Compute(frames, masses)
	if err != nil {
		return nil, err
	}

	artifactID := uuid.NewString()
	if err := p.saveArtifact(ctx, artifactID, out.TrajectoryPath); err != nil {
		return nil, err
	}

	return &domain.JobResult{
		MSD:                  res.MSD,
		KineticEnergy:        res.KineticEnergy,
		Frames:               res.Frames,
		Atoms:                res.Atoms,
		TrajectoryArtifactID: artifactID,
	}, nil
}

func (p *Pipeline) parse(out *engine.RunOutput) ([]*traj.Frame, error) {
	frames, err := p.parseFile(out.TrajectoryPath, out.Format)
	if err != nil {
		return nil, err
	}
	if out.VelocityPath != "" {
		velocities, err := p.parseFile(out.VelocityPath, engine.FormatCustomDump)
		if err != nil {
			return nil, err
		}
		if err := traj.MergeVelocities(frames, velocities); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

func (p *Pipeline) parseFile(path string, format engine.DumpFormat) ([]*traj.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	var src traj.Source
	switch format {
	case engine.FormatXYZ:
		src = &traj.XYZSource{R: f}
	default:
		src = &traj.DumpSource{R: f}
	}
	return src.Frames()
}

func (p *Pipeline) saveArtifact(ctx context.Context, artifactID, trajectoryPath string) error {
	f, err := os.Open(trajectoryPath)
	if err != nil {
		return fmt.Errorf("open trajectory for archival: %w", err)
	}
	defer f.Close()
	if err := p.Artifacts.SaveTrajectory(ctx, artifactID, f); err != nil {
		return fmt.Errorf("persist trajectory artifact: %w", err)
	}
	return nil
}

// Worker polls for pending jobs and processes them on a bounded pool. Each
// job occupies one slot for its whole pipeline run; distinct jobs proceed
// independently.
type Worker struct {
	Pipeline    *Pipeline
	Jobs        domain.SimulationJobRepository
	Poll        time.Duration
	Concurrency int
	Logger      infra.Logger
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	poll := w.Poll
	if poll <= 0 {
		poll = 2 * time.Second
	}
	w.Logger.Info().Int("concurrency", concurrency).Msg("worker: started")

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, poll)
		}()
	}
	wg.Wait()
	w.Logger.Info().Msg("worker: stopped")
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, poll time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, input, err := w.Jobs.Claim(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrJobNotClaimed) && !errors.Is(err, context.Canceled) {
				w.Logger.Error().Err(err).Msg("worker: claim failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(poll):
			}
			continue
		}

		w.Logger.Info().Str("job_id", job.ID).Msg("worker: claimed job")
		w.Pipeline.Process(ctx, job, input)
	}
}
