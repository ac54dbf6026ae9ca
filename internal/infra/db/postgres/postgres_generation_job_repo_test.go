//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
)

func seedDocument(t *testing.T, ctx context.Context) *model.Document {
	t.Helper()
	docRepo := NewDocumentRepo(testPool, testEncryption(t))
	doc := model.NewDocument(uuid.NewString(), "owner-1", "source", "document body")
	if err := docRepo.Save(ctx, nil, doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func TestGenerationJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewGenerationJobRepo(testPool)

	t.Run("save and read back across the state machine", func(t *testing.T) {
		cleanup(t)
		doc := seedDocument(t, ctx)
		job := model.NewGenerationJob(uuid.NewString(), doc.ID, "owner-1", "gpt-4o-mini", "en")

		if err := repo.Save(ctx, nil, job); err != nil {
			t.Fatalf("save pending: %v", err)
		}

		_ = job.Start()
		_ = job.BeginProcessing(3)
		if err := repo.Save(ctx, nil, job); err != nil {
			t.Fatalf("save processing: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Status != model.JobStatusProcessing || got.Chunk != 1 || got.TotalChunks != 3 {
			t.Errorf("got %+v", got)
		}

		_ = job.AdvanceChunk()
		_ = job.AdvanceChunk()
		_ = job.Complete(10, 5)
		if err := repo.Save(ctx, nil, job); err != nil {
			t.Fatalf("save done: %v", err)
		}
		got, _ = repo.FindByID(ctx, nil, job.ID)
		if got.Status != model.JobStatusDone || got.QuestionsCreated != 10 || got.FlashcardsCreated != 5 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("missing job yields ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("FailStale only touches old non-terminal jobs", func(t *testing.T) {
		cleanup(t)
		doc := seedDocument(t, ctx)

		stale := model.NewGenerationJob(uuid.NewString(), doc.ID, "owner-1", "m", "en")
		_ = stale.Start()
		if err := repo.Save(ctx, nil, stale); err != nil {
			t.Fatalf("save stale: %v", err)
		}
		// Age the row directly; Save always refreshes updated_at.
		if _, err := testPool.Exec(ctx,
			"UPDATE generation_jobs SET updated_at = NOW() - INTERVAL '2 hours' WHERE id = $1", stale.ID); err != nil {
			t.Fatalf("age row: %v", err)
		}

		fresh := model.NewGenerationJob(uuid.NewString(), doc.ID, "owner-1", "m", "en")
		if err := repo.Save(ctx, nil, fresh); err != nil {
			t.Fatalf("save fresh: %v", err)
		}

		oldDone := model.NewGenerationJob(uuid.NewString(), doc.ID, "owner-1", "m", "en")
		_ = oldDone.Start()
		_ = oldDone.BeginProcessing(1)
		_ = oldDone.Complete(1, 1)
		if err := repo.Save(ctx, nil, oldDone); err != nil {
			t.Fatalf("save done: %v", err)
		}
		if _, err := testPool.Exec(ctx,
			"UPDATE generation_jobs SET updated_at = NOW() - INTERVAL '2 hours' WHERE id = $1", oldDone.ID); err != nil {
			t.Fatalf("age done row: %v", err)
		}

		n, err := repo.FailStale(ctx, time.Hour)
		if err != nil {
			t.Fatalf("FailStale: %v", err)
		}
		if n != 1 {
			t.Errorf("FailStale touched %d rows", n)
		}

		got, _ := repo.FindByID(ctx, nil, stale.ID)
		if got.Status != model.JobStatusError || got.LastError == "" {
			t.Errorf("stale job: %+v", got)
		}
		if got, _ := repo.FindByID(ctx, nil, fresh.ID); got.Status != model.JobStatusPending {
			t.Errorf("fresh job touched: %+v", got)
		}
		if got, _ := repo.FindByID(ctx, nil, oldDone.ID); got.Status != model.JobStatusDone {
			t.Errorf("terminal job touched: %+v", got)
		}
	})

	t.Run("PurgeTerminal removes only old terminal jobs", func(t *testing.T) {
		cleanup(t)
		doc := seedDocument(t, ctx)

		purgeable := model.NewGenerationJob(uuid.NewString(), doc.ID, "owner-1", "m", "en")
		_ = purgeable.Fail("ancient history")
		if err := repo.Save(ctx, nil, purgeable); err != nil {
			t.Fatalf("save purgeable: %v", err)
		}
		if _, err := testPool.Exec(ctx,
			"UPDATE generation_jobs SET updated_at = NOW() - INTERVAL '30 days' WHERE id = $1", purgeable.ID); err != nil {
			t.Fatalf("age row: %v", err)
		}

		running := model.NewGenerationJob(uuid.NewString(), doc.ID, "owner-1", "m", "en")
		if err := repo.Save(ctx, nil, running); err != nil {
			t.Fatalf("save running: %v", err)
		}

		n, err := repo.PurgeTerminal(ctx, 7*24*time.Hour)
		if err != nil {
			t.Fatalf("PurgeTerminal: %v", err)
		}
		if n != 1 {
			t.Errorf("purged %d rows", n)
		}
		if _, err := repo.FindByID(ctx, nil, purgeable.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("purgeable job still present: %v", err)
		}
		if _, err := repo.FindByID(ctx, nil, running.ID); err != nil {
			t.Errorf("running job lost: %v", err)
		}
	})
}
