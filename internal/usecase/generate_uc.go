// File: internal/usecase/generate_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studygen/internal/config"
	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
	"studygen/internal/infra/logging"
	"studygen/internal/infra/redis"
	"studygen/internal/infra/worker"
	"studygen/internal/pipeline"
)

var _ GenerateUseCase = (*generateUC)(nil)

// SubmitLimiter is the slice of the redis rate limiter the use case needs.
type SubmitLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// JobRunner drives a job to a terminal state and closes the relay.
type JobRunner interface {
	Run(ctx context.Context, job *model.GenerationJob, relay *pipeline.Relay)
}

type SubmitRequest struct {
	DocumentID string
	OwnerID    string
	Model      string
	Language   string
}

// GenerateUseCase starts generation jobs and exposes their state. Submit
// blocks only for the admission checks; the pipeline itself runs on the
// worker pool while the caller consumes the returned relay.
type GenerateUseCase interface {
	Submit(ctx context.Context, req SubmitRequest) (*model.GenerationJob, *pipeline.Relay, error)
	Job(ctx context.Context, jobID string) (*model.GenerationJob, error)
}

type generateUC struct {
	docs         repository.DocumentRepository
	jobs         repository.GenerationJobRepository
	orchestrator JobRunner
	pool         *worker.Pool
	limiter      SubmitLimiter
	locker       redis.Locker
	limits       config.LimitsConfig
	heartbeat    time.Duration
	defaultModel string
	log          *zerolog.Logger
}

func NewGenerateUseCase(
	docs repository.DocumentRepository,
	jobs repository.GenerationJobRepository,
	orchestrator JobRunner,
	pool *worker.Pool,
	limiter SubmitLimiter,
	locker redis.Locker,
	limits config.LimitsConfig,
	heartbeat time.Duration,
	defaultModel string,
	log *zerolog.Logger,
) *generateUC {
	return &generateUC{
		docs:         docs,
		jobs:         jobs,
		orchestrator: orchestrator,
		pool:         pool,
		limiter:      limiter,
		locker:       locker,
		limits:       limits,
		heartbeat:    heartbeat,
		defaultModel: defaultModel,
		log:          log,
	}
}

// Submit admits a new generation job for the document. The relay is bound to
// ctx: if the caller's connection drops, the running job is cancelled. On
// admission failure nothing is persisted and no relay is created.
func (g *generateUC) Submit(ctx context.Context, req SubmitRequest) (*model.GenerationJob, *pipeline.Relay, error) {
	if req.DocumentID == "" || req.OwnerID == "" {
		return nil, nil, domain.ErrInvalidArgument
	}
	if req.Model == "" {
		req.Model = g.defaultModel
	}

	ok, err := g.limiter.Allow(ctx, redis.OwnerSubmitKey(req.OwnerID), g.limits.SubmissionsPerMinute, time.Minute)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, domain.ErrTooManyRequests
	}

	doc, err := g.docs.FindByID(ctx, nil, req.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	if doc.OwnerID != req.OwnerID {
		return nil, nil, domain.ErrNotFound
	}

	lockKey := redis.DocumentLockKey(doc.ID)
	token, err := g.locker.TryLock(ctx, lockKey, g.limits.DocumentLockTTL)
	if err != nil {
		return nil, nil, err
	}

	job := model.NewGenerationJob(uuid.NewString(), doc.ID, req.OwnerID, req.Model, req.Language)
	if err := g.jobs.Save(ctx, nil, job); err != nil {
		g.unlock(lockKey, token)
		return nil, nil, err
	}

	jobCtx, cancel := context.WithCancel(logging.WithJobID(logging.WithDocID(ctx, doc.ID), job.ID))
	relay := pipeline.NewRelay(jobCtx, g.heartbeat)

	task := func(poolCtx context.Context) {
		// A pool shutdown must also stop the job, not just the caller's
		// disconnect.
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()
		defer cancel()
		defer g.unlock(lockKey, token)

		g.orchestrator.Run(jobCtx, job, relay)
	}

	if err := g.pool.Submit(task); err != nil {
		cancel()
		g.unlock(lockKey, token)
		// Leave the pending row behind for the janitor; the caller gets the
		// saturation error directly.
		return nil, nil, err
	}

	return job, relay, nil
}

func (g *generateUC) Job(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return g.jobs.FindByID(ctx, nil, jobID)
}

func (g *generateUC) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.locker.Unlock(ctx, key, token); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to release document lock")
	}
}
