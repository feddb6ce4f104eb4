package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mdserver/internal/adapter/repo"
	"mdserver/internal/engine"
	"mdserver/internal/http/handlers"
	"mdserver/internal/http/httpapi"
	"mdserver/internal/infra"
	"mdserver/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	artifacts, err := storage.NewArtifactStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: artifact store init failed")
	}

	jobs := repo.NewSimulationJobRepository(pool)
	app := &handlers.App{
		Potentials: repo.NewPotentialFileRepository(pool),
		Inputs:     repo.NewSimulationInputRepository(pool),
		Jobs:       jobs,
		Artifacts:  artifacts,
		Retention: &storage.Retention{
			Jobs:      jobs,
			Artifacts: artifacts,
			Workdirs:  &engine.Stager{BaseDir: cfg.DataDir},
			Logger:    logger,
		},
		RetentionMaxAge: cfg.RetentionMaxAge,
		Logger:          logger,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, cfg))

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}
