package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studygen/internal/config"
	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/infra/redis"
	"studygen/internal/infra/worker"
)

type genFixture struct {
	docs    *mockDocRepo
	jobs    *mockJobRepo
	runner  *mockRunner
	limiter *mockLimiter
	locker  *mockLocker
	pool    *worker.Pool
	uc      GenerateUseCase
	cancel  context.CancelFunc
}

func newGenFixture(t *testing.T) *genFixture {
	t.Helper()
	logger := zerolog.Nop()

	f := &genFixture{
		docs:    newMockDocRepo(),
		jobs:    newMockJobRepo(),
		runner:  &mockRunner{},
		limiter: &mockLimiter{allow: true},
		locker:  newMockLocker(),
		pool:    worker.NewPool(2, &logger),
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		f.pool.Stop()
	})

	f.uc = NewGenerateUseCase(
		f.docs, f.jobs, f.runner, f.pool, f.limiter, f.locker,
		config.LimitsConfig{SubmissionsPerMinute: 6, DocumentLockTTL: time.Minute},
		time.Hour, "default-model", &logger,
	)

	doc := model.NewDocument("doc-1", "owner-1", "notes", "content")
	if err := f.docs.Save(context.Background(), nil, doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return f
}

func TestSubmit_HappyPath(t *testing.T) {
	f := newGenFixture(t)

	job, relay, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("job status = %s", job.Status)
	}
	if job.Model != "default-model" {
		t.Errorf("default model not applied: %q", job.Model)
	}
	if _, err := f.jobs.FindByID(context.Background(), nil, job.ID); err != nil {
		t.Errorf("pending job not persisted: %v", err)
	}

	// Drain until the runner's terminal event.
	var last model.ProgressEvent
	for ev := range relay.Events() {
		last = ev
	}
	if last.Phase != model.PhaseDone {
		t.Errorf("terminal event: %+v", last)
	}

	deadline := time.After(time.Second)
	for len(f.runner.ranJobs()) == 0 {
		select {
		case <-deadline:
			t.Fatal("runner never invoked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := f.runner.ranJobs(); got[0] != job.ID {
		t.Errorf("runner ran %v", got)
	}
}

func TestSubmit_LockReleasedAfterRun(t *testing.T) {
	f := newGenFixture(t)

	_, relay, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for range relay.Events() {
	}

	deadline := time.After(time.Second)
	for {
		f.locker.mu.Lock()
		free := len(f.locker.held) == 0 && f.locker.unlocks == 1
		f.locker.mu.Unlock()
		if free {
			return
		}
		select {
		case <-deadline:
			t.Fatal("document lock never released")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmit_SecondJobForSameDocumentRejected(t *testing.T) {
	f := newGenFixture(t)
	f.runner.wait = make(chan struct{})
	defer close(f.runner.wait)

	if _, _, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "owner-1"}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, _, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "owner-1"})
	if !errors.Is(err, domain.ErrJobInFlight) {
		t.Fatalf("expected ErrJobInFlight, got %v", err)
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	f := newGenFixture(t)
	f.limiter.allow = false

	_, _, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "owner-1"})
	if !errors.Is(err, domain.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
	if len(f.runner.ranJobs()) != 0 {
		t.Error("runner invoked despite rate limit")
	}
	if len(f.locker.held) != 0 {
		t.Error("lock taken despite rate limit")
	}
}

func TestSubmit_UnknownDocument(t *testing.T) {
	f := newGenFixture(t)

	_, _, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "ghost", OwnerID: "owner-1"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmit_ForeignDocumentLooksMissing(t *testing.T) {
	f := newGenFixture(t)

	_, _, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "someone-else"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmit_PoolSaturationReleasesLock(t *testing.T) {
	f := newGenFixture(t)

	// Stop the workers so nothing drains the queue, then fill the buffer.
	f.cancel()
	f.pool.Stop()
	for f.pool.Submit(func(context.Context) {}) == nil {
	}

	_, _, err := f.uc.Submit(context.Background(), SubmitRequest{DocumentID: "doc-1", OwnerID: "owner-1"})
	if !errors.Is(err, domain.ErrQueueSaturated) {
		t.Fatalf("expected ErrQueueSaturated, got %v", err)
	}
	if len(f.locker.held) != 0 {
		t.Error("lock not released after saturation")
	}
}

func TestSubmit_MissingArguments(t *testing.T) {
	f := newGenFixture(t)

	for _, req := range []SubmitRequest{
		{DocumentID: "", OwnerID: "owner-1"},
		{DocumentID: "doc-1", OwnerID: ""},
	} {
		if _, _, err := f.uc.Submit(context.Background(), req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("req %+v: expected ErrInvalidArgument, got %v", req, err)
		}
	}
	if f.limiter.calls != 0 {
		t.Error("limiter consulted for invalid requests")
	}
}

func TestJob_Lookup(t *testing.T) {
	f := newGenFixture(t)
	seeded := model.NewGenerationJob("job-9", "doc-1", "owner-1", "m", "en")
	_ = f.jobs.Save(context.Background(), nil, seeded)

	job, err := f.uc.Job(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.ID != "job-9" {
		t.Errorf("got job %q", job.ID)
	}

	if _, err := f.uc.Job(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.uc.Job(context.Background(), ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// Guard against the concrete locker diverging from the interface the use case
// consumes.
var _ redis.Locker = (*mockLocker)(nil)
