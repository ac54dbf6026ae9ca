//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
	"studygen/internal/infra/security"
)

func testEncryption(t *testing.T) *security.EncryptionService {
	t.Helper()
	enc, err := security.NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("encryption service: %v", err)
	}
	return enc
}

func TestDocumentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewDocumentRepo(testPool, testEncryption(t))

	t.Run("save, read back and update", func(t *testing.T) {
		cleanup(t)
		doc := model.NewDocument(uuid.NewString(), "owner-1", "Physics", "F = ma and other truths")

		if err := repo.Save(ctx, nil, doc); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, doc.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Content != "F = ma and other truths" {
			t.Errorf("content round trip failed: %q", got.Content)
		}
		if got.OwnerID != "owner-1" || got.Title != "Physics" {
			t.Errorf("got %+v", got)
		}

		doc.Content = "revised content"
		if err := repo.Save(ctx, nil, doc); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err = repo.FindByID(ctx, nil, doc.ID)
		if err != nil {
			t.Fatalf("find after update: %v", err)
		}
		if got.Content != "revised content" {
			t.Errorf("update lost: %q", got.Content)
		}
	})

	t.Run("content is not stored in the clear", func(t *testing.T) {
		cleanup(t)
		doc := model.NewDocument(uuid.NewString(), "owner-1", "Secret", "the plaintext body")
		if err := repo.Save(ctx, nil, doc); err != nil {
			t.Fatalf("save: %v", err)
		}

		var raw string
		if err := testPool.QueryRow(ctx, "SELECT content FROM documents WHERE id = $1", doc.ID).Scan(&raw); err != nil {
			t.Fatalf("raw query: %v", err)
		}
		if raw == "the plaintext body" {
			t.Error("content stored unencrypted")
		}
	})

	t.Run("missing id yields ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		cleanup(t)
		doc := model.NewDocument(uuid.NewString(), "owner-1", "Gone", "away")
		if err := repo.Save(ctx, nil, doc); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := repo.Delete(ctx, nil, doc.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete(ctx, nil, doc.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second delete: %v", err)
		}
	})
}
