package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*generationJobRepo)(nil)

type generationJobRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationJobRepo(pool *pgxpool.Pool) *generationJobRepo {
	return &generationJobRepo{pool: pool}
}

func (r *generationJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	job.UpdatedAt = time.Now()

	const q = `
INSERT INTO generation_jobs
  (id, document_id, owner_id, status, chunk, total_chunks, model, language,
   questions_created, flashcards_created, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  chunk = EXCLUDED.chunk,
  total_chunks = EXCLUDED.total_chunks,
  questions_created = EXCLUDED.questions_created,
  flashcards_created = EXCLUDED.flashcards_created,
  last_error = EXCLUDED.last_error,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.DocumentID, job.OwnerID, string(job.Status), job.Chunk, job.TotalChunks,
		job.Model, job.Language, job.QuestionsCreated, job.FlashcardsCreated, job.LastError,
		job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *generationJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	const q = `
SELECT id, document_id, owner_id, status, chunk, total_chunks, model, language,
       questions_created, flashcards_created, last_error, created_at, updated_at
FROM generation_jobs WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var job model.GenerationJob
	var status string
	err = row.Scan(&job.ID, &job.DocumentID, &job.OwnerID, &status, &job.Chunk, &job.TotalChunks,
		&job.Model, &job.Language, &job.QuestionsCreated, &job.FlashcardsCreated, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.Status = model.JobStatus(status)
	return &job, nil
}

func (r *generationJobRepo) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `
UPDATE generation_jobs
SET status = 'error', last_error = 'abandoned: no progress recorded', updated_at = NOW()
WHERE status NOT IN ('done', 'error') AND updated_at < $1;`

	cmd, err := execSQL(ctx, r.pool, nil, q, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *generationJobRepo) PurgeTerminal(ctx context.Context, retention time.Duration) (int64, error) {
	const q = `
DELETE FROM generation_jobs
WHERE status IN ('done', 'error') AND updated_at < $1;`

	cmd, err := execSQL(ctx, r.pool, nil, q, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
