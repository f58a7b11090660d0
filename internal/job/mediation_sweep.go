package job

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/complaint"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/lock"
)

const sweepLockKey = "jobs:mediation_sweep"

// MediationSweep periodically escalates complaints whose intervention
// deadline has passed. A Redis lock around each pass keeps concurrent
// replicas from working the same batch.
type MediationSweep struct {
	complaints *complaint.Service
	redis      *redis.Client
	interval   time.Duration
	lockTTL    time.Duration
	batchSize  int
	logger     zerolog.Logger
}

func NewMediationSweep(complaints *complaint.Service, redisClient *redis.Client, interval, lockTTL time.Duration, logger zerolog.Logger) *MediationSweep {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &MediationSweep{
		complaints: complaints,
		redis:      redisClient,
		interval:   interval,
		lockTTL:    lockTTL,
		batchSize:  50,
		logger:     logger.With().Str("job", "mediation_sweep").Logger(),
	}
}

// Run blocks until the context is cancelled, sweeping once per interval.
// The first pass runs immediately on start.
func (j *MediationSweep) Run(ctx context.Context) {
	j.logger.Info().Dur("interval", j.interval).Msg("mediation sweep started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("mediation sweep stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *MediationSweep) sweep(ctx context.Context) {
	l := lock.New(j.redis, sweepLockKey, j.lockTTL)
	ok, err := l.TryAcquire(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to acquire sweep lock")
		return
	}
	if !ok {
		j.logger.Debug().Msg("another replica holds the sweep lock")
		return
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			j.logger.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	settled, err := j.complaints.SweepOverdue(ctx, time.Now(), j.batchSize)
	if err != nil {
		j.logger.Error().Err(err).Msg("sweep pass failed")
		return
	}
	if settled > 0 {
		j.logger.Info().Int("settled", settled).Msg("escalated overdue complaints")
	}
}
