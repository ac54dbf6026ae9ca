package model

import (
	"time"

	"studygen/internal/domain"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusUploading  JobStatus = "uploading"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// GenerationJob is the per-submission state machine instance:
//
//	pending -> uploading -> processing(1/N) -> ... -> processing(N/N) -> done
//	{uploading, processing} -> error
//
// Only the orchestrator mutates a job; callers observe it through progress
// events or the persisted copy. done and error are terminal.
type GenerationJob struct {
	ID         string
	DocumentID string
	OwnerID    string
	Status     JobStatus

	Chunk       int // 1-based unit currently processing, valid while Status == processing
	TotalChunks int

	Model    string
	Language string

	QuestionsCreated  int
	FlashcardsCreated int
	LastError         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewGenerationJob(id, documentID, ownerID, model, language string) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:         id,
		DocumentID: documentID,
		OwnerID:    ownerID,
		Status:     JobStatusPending,
		Model:      model,
		Language:   language,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (j *GenerationJob) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusError
}

// Start moves pending -> uploading.
func (j *GenerationJob) Start() error {
	if j.Status != JobStatusPending {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusUploading
	j.touch()
	return nil
}

// BeginProcessing moves uploading -> processing(1/total).
func (j *GenerationJob) BeginProcessing(total int) error {
	if j.Status != JobStatusUploading || total < 1 {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusProcessing
	j.Chunk = 1
	j.TotalChunks = total
	j.touch()
	return nil
}

// AdvanceChunk moves processing(i/N) -> processing(i+1/N) after unit i
// finished. The caller must not advance past TotalChunks.
func (j *GenerationJob) AdvanceChunk() error {
	if j.Status != JobStatusProcessing || j.Chunk >= j.TotalChunks {
		return domain.ErrInvalidTransition
	}
	j.Chunk++
	j.touch()
	return nil
}

// Complete moves processing(N/N) -> done with the persisted record counts.
func (j *GenerationJob) Complete(questions, flashcards int) error {
	if j.Status != JobStatusProcessing || j.Chunk != j.TotalChunks {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusDone
	j.QuestionsCreated = questions
	j.FlashcardsCreated = flashcards
	j.touch()
	return nil
}

// Fail moves any non-terminal state to error. Failing a terminal job is an
// ErrInvalidTransition so a late cancellation can never clobber a result.
func (j *GenerationJob) Fail(msg string) error {
	if j.Terminal() {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusError
	j.LastError = msg
	j.touch()
	return nil
}

func (j *GenerationJob) touch() { j.UpdatedAt = time.Now() }
