package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mdserver/internal/adapter/repo"
	"mdserver/internal/analysis"
	"mdserver/internal/engine"
	"mdserver/internal/infra"
	"mdserver/internal/storage"
	"mdserver/internal/worker"
)

const sweepInterval = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	artifacts, err := storage.NewArtifactStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: artifact store init failed")
	}

	var masses analysis.MassSource
	if cfg.MassTablePath != "" {
		table, err := analysis.LoadMassTable(cfg.MassTablePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.MassTablePath).Msg("worker: mass table load failed")
		}
		masses = table
	}

	jobs := repo.NewSimulationJobRepository(pool)
	stager := &engine.Stager{BaseDir: cfg.DataDir}
	pipeline := &worker.Pipeline{
		Jobs:     jobs,
		Stager:   stager,
		Resolver: &engine.Resolver{Potentials: repo.NewPotentialFileRepository(pool)},
		Runner: &engine.Runner{
			Exec:    &engine.LocalExecutor{Bin: cfg.EngineBin},
			Timeout: cfg.EngineTimeout,
			Logger:  logger,
		},
		Artifacts: artifacts,
		Masses:    masses,
		Logger:    logger,
	}

	retention := &storage.Retention{
		Jobs:      jobs,
		Artifacts: artifacts,
		Workdirs:  stager,
		Logger:    logger,
	}
	go sweepLoop(ctx, retention, cfg.RetentionMaxAge, logger)

	w := &worker.Worker{
		Pipeline:    pipeline,
		Jobs:        jobs,
		Poll:        cfg.WorkerPoll,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	}
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("worker: exited")
	}
}

func sweepLoop(ctx context.Context, retention *storage.Retention, maxAge time.Duration, logger infra.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := retention.Sweep(ctx, maxAge)
			if err != nil {
				logger.Error().Err(err).Msg("worker: retention sweep failed")
				continue
			}
			if removed > 0 {
				logger.Info().Int("removed", removed).Msg("worker: retention sweep")
			}
		}
	}
}
