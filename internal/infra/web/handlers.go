// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/infra/logging"
	"studygen/internal/usecase"
)

type documentCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type jobResponse struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"document_id"`
	Status            string    `json:"status"`
	Chunk             int       `json:"chunk,omitempty"`
	TotalChunks       int       `json:"total_chunks,omitempty"`
	QuestionsCreated  int       `json:"questions_created,omitempty"`
	FlashcardsCreated int       `json:"flashcards_created,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toJobResponse(j *model.GenerationJob) jobResponse {
	return jobResponse{
		ID:                j.ID,
		DocumentID:        j.DocumentID,
		Status:            string(j.Status),
		Chunk:             j.Chunk,
		TotalChunks:       j.TotalChunks,
		QuestionsCreated:  j.QuestionsCreated,
		FlashcardsCreated: j.FlashcardsCreated,
		LastError:         j.LastError,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req documentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := s.docUC.Create(ctx, ownerID(r), req.Title, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentResponse{ID: doc.ID, Title: doc.Title, CreatedAt: doc.CreatedAt})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docUC.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if doc.OwnerID != ownerID(r) {
		s.writeError(w, r, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{ID: doc.ID, Title: doc.Title, CreatedAt: doc.CreatedAt})
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	set, err := s.docUC.Materials(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// handleGenerate admits a job and then relays its progress to the caller as
// server-sent events until the terminal frame. Closing the connection
// cancels the job.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Model    string `json:"model"`
		Language string `json:"language"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	job, relay, err := s.genUC.Submit(ctx, usecase.SubmitRequest{
		DocumentID: chi.URLParam(r, "documentID"),
		OwnerID:    ownerID(r),
		Model:      body.Model,
		Language:   body.Language,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := streamEvents(w, relay); err != nil {
		logging.With(ctx, s.log).Debug().Err(err).Str("job_id", job.ID).Msg("event stream ended early")
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.genUC.Job(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if job.OwnerID != ownerID(r) {
		s.writeError(w, r, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// ownerID identifies the caller. Authentication proper lives in front of
// this service; the header is trusted as-is.
func ownerID(r *http.Request) string {
	return r.Header.Get("X-Owner-ID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrEmptyDocument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrJobInFlight):
		http.Error(w, "A generation job is already running for this document", http.StatusConflict)
	case errors.Is(err, domain.ErrTooManyRequests):
		http.Error(w, "Too many submissions, slow down", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrQueueSaturated):
		http.Error(w, "Server is busy, try again later", http.StatusServiceUnavailable)
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
