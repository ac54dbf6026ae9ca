package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"studygen/internal/config"
	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
	"studygen/internal/infra/metrics"
	"studygen/internal/planner"
)

// Orchestrator owns the per-job state machine. It plans units, runs them
// strictly in order through the stream executor, enforces the inter-unit
// delay, and hands the final accumulated text to assembly and persistence.
// Retries are invisible here; only an attempt sequence's final outcome moves
// the state machine.
type Orchestrator struct {
	docs      repository.DocumentRepository
	jobs      repository.GenerationJobRepository
	materials repository.MaterialRepository
	tm        repository.TransactionManager
	exec      *StreamExecutor
	cfg       config.PipelineConfig
	maxOut    int
	log       *zerolog.Logger
}

func NewOrchestrator(
	docs repository.DocumentRepository,
	jobs repository.GenerationJobRepository,
	materials repository.MaterialRepository,
	tm repository.TransactionManager,
	exec *StreamExecutor,
	cfg config.PipelineConfig,
	maxOutputTokens int,
	log *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		docs:      docs,
		jobs:      jobs,
		materials: materials,
		tm:        tm,
		exec:      exec,
		cfg:       cfg,
		maxOut:    maxOutputTokens,
		log:       log,
	}
}

// Run drives job to a terminal state and guarantees exactly one terminal
// event on relay, after which the relay is closed. Cancellation of ctx (the
// caller disconnecting) lands on the error path with nothing persisted.
func (o *Orchestrator) Run(ctx context.Context, job *model.GenerationJob, relay *Relay) {
	log := o.log.With().Str("job_id", job.ID).Str("doc_id", job.DocumentID).Logger()
	metrics.JobStarted()
	defer metrics.JobFinished()
	start := time.Now()

	questions, flashcards, err := o.run(ctx, job, relay)
	if err != nil {
		msg := userMessage(err)
		if job.Fail(msg) == nil {
			// The caller may already be gone; the final status write must
			// not depend on their context.
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := o.jobs.Save(saveCtx, nil, job); serr != nil {
				log.Error().Err(serr).Msg("could not persist failed job status")
			}
		}
		metrics.IncJobFinished(string(model.JobStatusError))
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("generation job failed")
		relay.CloseWith(model.ProgressEvent{Phase: model.PhaseError, Err: msg})
		return
	}

	metrics.IncJobFinished(string(model.JobStatusDone))
	log.Info().
		Int("questions", questions).
		Int("flashcards", flashcards).
		Dur("elapsed", time.Since(start)).
		Msg("generation job done")
	relay.CloseWith(model.ProgressEvent{
		Phase:             model.PhaseDone,
		QuestionsCreated:  questions,
		FlashcardsCreated: flashcards,
	})
}

func (o *Orchestrator) run(ctx context.Context, job *model.GenerationJob, relay *Relay) (int, int, error) {
	if err := job.Start(); err != nil {
		return 0, 0, err
	}
	if err := o.jobs.Save(ctx, nil, job); err != nil {
		return 0, 0, fmt.Errorf("persist job: %w", err)
	}
	relay.Emit(model.ProgressEvent{Phase: model.PhaseStarted, Message: "Preparing document"})

	doc, err := o.docs.FindByID(ctx, nil, job.DocumentID)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve document %s: %w", job.DocumentID, err)
	}

	units, err := planner.NewForProvider(ctx, o.exec.Streamer(), job.Model, o.cfg.MaxUnitTokens).Plan(ctx, job.ID, doc.Content)
	if err != nil {
		return 0, 0, fmt.Errorf("plan work units: %w", err)
	}
	total := len(units)

	if err := job.BeginProcessing(total); err != nil {
		return 0, 0, err
	}
	if err := o.jobs.Save(ctx, nil, job); err != nil {
		return 0, 0, fmt.Errorf("persist job: %w", err)
	}

	var full strings.Builder
	for i, unit := range units {
		if i > 0 {
			// Deliberate pacing between sequential units, not failure
			// recovery: the provider rate limits bursts.
			select {
			case <-time.After(o.cfg.InterUnitDelay):
			case <-ctx.Done():
				return 0, 0, ctx.Err()
			}
			if err := job.AdvanceChunk(); err != nil {
				return 0, 0, err
			}
			if err := o.jobs.Save(ctx, nil, job); err != nil {
				return 0, 0, fmt.Errorf("persist job: %w", err)
			}
		}
		chunk := i + 1
		relay.Emit(model.ProgressEvent{
			Phase:   model.PhaseProgress,
			Message: fmt.Sprintf("Generating study materials (part %d/%d)", chunk, total),
			Chunk:   chunk,
			Total:   total,
		})

		onProgress := func(chars int) {
			relay.Emit(model.ProgressEvent{
				Phase:   model.PhaseProgress,
				Message: fmt.Sprintf("Received %d characters", chars),
				Chunk:   chunk,
				Total:   total,
				Chars:   chars,
			})
		}
		onRetry := func(kind domain.FailureKind, delay time.Duration) {
			relay.Emit(model.ProgressEvent{
				Phase:   model.PhaseWarning,
				Message: fmt.Sprintf("Generation hiccup (%s), retrying in %s", kind, delay.Round(time.Second)),
				Chunk:   chunk,
				Total:   total,
			})
		}
		text, err := o.exec.Generate(ctx, buildRequest(job, unit, total, o.maxOut), onProgress, onRetry)
		if err != nil {
			return 0, 0, err
		}
		full.WriteString(text)
		full.WriteByte('\n')
	}

	set, err := ParseMaterials(job.DocumentID, full.String())
	if err != nil {
		return 0, 0, err
	}

	// Replace prior materials and mark the job done in one transaction, so a
	// re-run can never leave duplicates or a done job without its records.
	err = o.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := o.materials.Replace(ctx, tx, job.DocumentID, set); err != nil {
			return err
		}
		if err := job.Complete(len(set.Questions), len(set.Flashcards)); err != nil {
			return err
		}
		return o.jobs.Save(ctx, tx, job)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("persist materials: %w", err)
	}
	return len(set.Questions), len(set.Flashcards), nil
}

// userMessage renders the terminal error for the caller without leaking
// provider internals.
func userMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "cancelled by caller"
	}
	if errors.Is(err, domain.ErrRecordTooLarge) {
		return "a single page exceeds the configured unit size; raise pipeline.max_unit_tokens"
	}
	f := domain.AsFailure(err)
	switch f.Kind {
	case domain.FailureRateLimited:
		return "the generation service kept rate limiting us; try again later"
	case domain.FailureOverloaded:
		return "the generation service is overloaded; try again later"
	case domain.FailureStalled, domain.FailureTimedOut:
		return "the generation service stopped responding; try again later"
	case domain.FailureParse:
		return "the generation service returned output that could not be parsed"
	default:
		return err.Error()
	}
}
