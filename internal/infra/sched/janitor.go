package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"studygen/internal/config"
	"studygen/internal/domain/ports/repository"
)

// Janitor periodically fails jobs whose persisted state stopped moving (a
// crashed process left them mid-processing) and purges terminal jobs past
// retention. It never touches live in-memory jobs: staleness is judged from
// the last persisted update, which running jobs refresh on every transition.
type Janitor struct {
	cfg  config.JanitorConfig
	jobs repository.GenerationJobRepository
	log  *zerolog.Logger
}

func NewJanitor(cfg config.JanitorConfig, jobs repository.GenerationJobRepository, logger *zerolog.Logger) *Janitor {
	jl := logger.With().Str("component", "Janitor").Logger()
	return &Janitor{cfg: cfg, jobs: jobs, log: &jl}
}

func (j *Janitor) Run(ctx context.Context) error {
	j.log.Info().Dur("interval", j.cfg.Interval).Msg("starting janitor")
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("stopping janitor")
			return ctx.Err()
		case <-ticker.C:
			if n, err := j.jobs.FailStale(ctx, j.cfg.StaleAfter); err != nil {
				j.log.Error().Err(err).Msg("fail stale jobs")
			} else if n > 0 {
				j.log.Warn().Int64("count", n).Msg("abandoned jobs marked errored")
			}
			if n, err := j.jobs.PurgeTerminal(ctx, j.cfg.JobRetention); err != nil {
				j.log.Error().Err(err).Msg("purge terminal jobs")
			} else if n > 0 {
				j.log.Info().Int64("count", n).Msg("old terminal jobs purged")
			}
		}
	}
}
