package repository

import (
	"context"

	"studygen/internal/domain/model"
)

// MaterialRepository persists generated study materials. Replace is the only
// write path: it deletes every prior record for the document and inserts the
// new set in the same transaction, so a re-run can never accumulate
// duplicates or leave stale rows behind.
type MaterialRepository interface {
	Replace(ctx context.Context, tx Tx, documentID string, set *model.MaterialSet) error
	ListQuestions(ctx context.Context, tx Tx, documentID string) ([]*model.QuizQuestion, error)
	ListFlashcards(ctx context.Context, tx Tx, documentID string) ([]*model.Flashcard, error)
}
