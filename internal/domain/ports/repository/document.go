package repository

import (
	"context"

	"studygen/internal/domain/model"
)

type DocumentRepository interface {
	Save(ctx context.Context, tx Tx, doc *model.Document) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Document, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
