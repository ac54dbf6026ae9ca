package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/repository"
	"studygen/internal/infra/security"
)

var _ repository.DocumentRepository = (*documentRepo)(nil)

// documentRepo stores documents with their content encrypted at rest.
type documentRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewDocumentRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *documentRepo {
	return &documentRepo{pool: pool, enc: enc}
}

func (r *documentRepo) Save(ctx context.Context, tx repository.Tx, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.UpdatedAt = time.Now()

	content, err := r.enc.Encrypt(doc.Content)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO documents (id, owner_id, title, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  content = EXCLUDED.content,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		doc.ID, doc.OwnerID, doc.Title, content, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (r *documentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Document, error) {
	const q = `
SELECT id, owner_id, title, content, created_at, updated_at
FROM documents WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var doc model.Document
	var content string
	err = row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &content, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	doc.Content, err = r.enc.Decrypt(content)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM documents WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
