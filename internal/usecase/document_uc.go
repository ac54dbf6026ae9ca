// File: internal/usecase/document_uc.go
package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
)

// Compile-time check
var _ DocumentUseCase = (*documentUC)(nil)

type DocumentUseCase interface {
	Create(ctx context.Context, ownerID, title, content string) (*model.Document, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	Materials(ctx context.Context, documentID string) (*model.MaterialSet, error)
}

type documentUC struct {
	docs      repository.DocumentRepository
	materials repository.MaterialRepository
}

func NewDocumentUseCase(docs repository.DocumentRepository, materials repository.MaterialRepository) *documentUC {
	return &documentUC{docs: docs, materials: materials}
}

func (d *documentUC) Create(ctx context.Context, ownerID, title, content string) (*model.Document, error) {
	ownerID = strings.TrimSpace(ownerID)
	content = strings.TrimSpace(content)
	if ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if content == "" {
		return nil, domain.ErrEmptyDocument
	}
	if title == "" {
		title = "Untitled document"
	}
	doc := model.NewDocument(uuid.NewString(), ownerID, title, content)
	if err := d.docs.Save(ctx, nil, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *documentUC) Get(ctx context.Context, id string) (*model.Document, error) {
	return d.docs.FindByID(ctx, nil, id)
}

func (d *documentUC) Materials(ctx context.Context, documentID string) (*model.MaterialSet, error) {
	questions, err := d.materials.ListQuestions(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	flashcards, err := d.materials.ListFlashcards(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	return &model.MaterialSet{Questions: questions, Flashcards: flashcards}, nil
}
