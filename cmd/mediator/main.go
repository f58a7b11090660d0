package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/heroncosmo/plano-junto-sub000/internal/config"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/complaint"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/group"
	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
	"github.com/heroncosmo/plano-junto-sub000/internal/job"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/database"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("sweep_interval", cfg.MediatorSweepInterval).
		Msg("Starting mediation worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	ledgerRepo := ledger.NewRepository(db)
	groupService := group.NewService(group.NewRepository(db, ledgerRepo))
	complaintService := complaint.NewService(
		complaint.NewRepository(db, ledgerRepo),
		groupService,
		cfg.AdminResponseDeadline,
		cfg.InterventionDeadline,
		log.Logger,
	)

	sweep := job.NewMediationSweep(complaintService, redisClient,
		cfg.MediatorSweepInterval, cfg.MediatorLockTTL, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go sweep.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down mediation worker...")
	cancel()
	log.Info().Msg("Mediation worker exited properly")
}
