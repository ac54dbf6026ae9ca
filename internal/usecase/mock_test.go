package usecase

import (
	"context"
	"sync"
	"time"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
	"studygen/internal/pipeline"
)

//
// -------------------- repositories --------------------
//

type mockDocRepo struct {
	mu   sync.Mutex
	docs map[string]*model.Document
	err  error // forced error for every call when set
}

func newMockDocRepo() *mockDocRepo { return &mockDocRepo{docs: map[string]*model.Document{}} }

func (r *mockDocRepo) Save(_ context.Context, _ repository.Tx, d *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *d
	r.docs[d.ID] = &cp
	return nil
}

func (r *mockDocRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *mockDocRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.GenerationJob
	err  error
}

func newMockJobRepo() *mockJobRepo { return &mockJobRepo{jobs: map[string]*model.GenerationJob{}} }

func (r *mockJobRepo) Save(_ context.Context, _ repository.Tx, j *model.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *mockJobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *mockJobRepo) FailStale(context.Context, time.Duration) (int64, error)     { return 0, nil }
func (r *mockJobRepo) PurgeTerminal(context.Context, time.Duration) (int64, error) { return 0, nil }

type mockMaterialRepo struct {
	mu   sync.Mutex
	sets map[string]*model.MaterialSet
}

func newMockMaterialRepo() *mockMaterialRepo {
	return &mockMaterialRepo{sets: map[string]*model.MaterialSet{}}
}

func (r *mockMaterialRepo) Replace(_ context.Context, _ repository.Tx, documentID string, set *model.MaterialSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[documentID] = set
	return nil
}

func (r *mockMaterialRepo) ListQuestions(_ context.Context, _ repository.Tx, documentID string) ([]*model.QuizQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sets[documentID]; ok {
		return s.Questions, nil
	}
	return nil, nil
}

func (r *mockMaterialRepo) ListFlashcards(_ context.Context, _ repository.Tx, documentID string) ([]*model.Flashcard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sets[documentID]; ok {
		return s.Flashcards, nil
	}
	return nil, nil
}

//
// -------------------- admission collaborators --------------------
//

type mockLimiter struct {
	mu    sync.Mutex
	allow bool
	err   error
	calls int
}

func (m *mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.allow, m.err
}

type mockLocker struct {
	mu      sync.Mutex
	held    map[string]string
	unlocks int
	lockErr error
}

func newMockLocker() *mockLocker { return &mockLocker{held: map[string]string{}} }

func (m *mockLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return "", m.lockErr
	}
	if _, taken := m.held[key]; taken {
		return "", domain.ErrJobInFlight
	}
	m.held[key] = "token-" + key
	return m.held[key], nil
}

func (m *mockLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	m.unlocks++
	return nil
}

// mockRunner records the jobs it was handed and closes their relay with a
// canned terminal event, like the real orchestrator guarantees.
type mockRunner struct {
	mu   sync.Mutex
	runs []string
	wait chan struct{} // when set, Run blocks until closed
}

func (m *mockRunner) Run(ctx context.Context, job *model.GenerationJob, relay *pipeline.Relay) {
	m.mu.Lock()
	m.runs = append(m.runs, job.ID)
	wait := m.wait
	m.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
		}
	}
	relay.CloseWith(model.ProgressEvent{Phase: model.PhaseDone, QuestionsCreated: 1})
}

func (m *mockRunner) ranJobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.runs...)
}
