package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
)

var _ repository.MaterialRepository = (*materialRepo)(nil)

type materialRepo struct {
	pool *pgxpool.Pool
}

func NewMaterialRepo(pool *pgxpool.Pool) *materialRepo {
	return &materialRepo{pool: pool}
}

// Replace deletes every prior record for the document before inserting the
// new set. Callers run it inside a transaction so a re-run either fully
// replaces or changes nothing.
func (r *materialRepo) Replace(ctx context.Context, tx repository.Tx, documentID string, set *model.MaterialSet) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM quiz_questions WHERE document_id = $1;`, documentID); err != nil {
		return err
	}
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM flashcards WHERE document_id = $1;`, documentID); err != nil {
		return err
	}

	const insertQuestion = `
INSERT INTO quiz_questions
  (id, document_id, position, prompt, options, answer, explanation, difficulty, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	for _, q := range set.Questions {
		if _, err := execSQL(ctx, r.pool, tx, insertQuestion,
			q.ID, q.DocumentID, q.Position, q.Prompt, q.Options, q.Answer, q.Explanation, q.Difficulty, q.CreatedAt); err != nil {
			return err
		}
	}

	const insertCard = `
INSERT INTO flashcards (id, document_id, position, front, back, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	for _, f := range set.Flashcards {
		if _, err := execSQL(ctx, r.pool, tx, insertCard,
			f.ID, f.DocumentID, f.Position, f.Front, f.Back, f.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *materialRepo) ListQuestions(ctx context.Context, tx repository.Tx, documentID string) ([]*model.QuizQuestion, error) {
	const q = `
SELECT id, document_id, position, prompt, options, answer, explanation, difficulty, created_at
FROM quiz_questions WHERE document_id = $1 ORDER BY position;`

	rows, err := pickRows(ctx, r.pool, tx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.QuizQuestion
	for rows.Next() {
		var qq model.QuizQuestion
		if err := rows.Scan(&qq.ID, &qq.DocumentID, &qq.Position, &qq.Prompt, &qq.Options,
			&qq.Answer, &qq.Explanation, &qq.Difficulty, &qq.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &qq)
	}
	return out, rows.Err()
}

func (r *materialRepo) ListFlashcards(ctx context.Context, tx repository.Tx, documentID string) ([]*model.Flashcard, error) {
	const q = `
SELECT id, document_id, position, front, back, created_at
FROM flashcards WHERE document_id = $1 ORDER BY position;`

	rows, err := pickRows(ctx, r.pool, tx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Flashcard
	for rows.Next() {
		var f model.Flashcard
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Position, &f.Front, &f.Back, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
