package repository

import (
	"context"
	"time"

	"studygen/internal/domain/model"
)

type GenerationJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.GenerationJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.GenerationJob, error)

	// FailStale marks jobs stuck in a non-terminal status with no update for
	// longer than olderThan as errored. Returns the number of jobs touched.
	FailStale(ctx context.Context, olderThan time.Duration) (int64, error)

	// PurgeTerminal deletes done/error jobs whose last update is older than
	// retention. Returns the number of jobs deleted.
	PurgeTerminal(ctx context.Context, retention time.Duration) (int64, error)
}
