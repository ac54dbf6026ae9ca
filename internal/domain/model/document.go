package model

import "time"

// Document is a stored source text (a textbook chapter, pasted notes).
// Content is held as plaintext in memory; the repository encrypts it at rest.
type Document struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewDocument(id, ownerID, title, content string) *Document {
	now := time.Now()
	return &Document{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
