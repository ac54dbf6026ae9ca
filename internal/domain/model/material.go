package model

import "time"

// QuizQuestion is one multiple-choice question generated for a document.
type QuizQuestion struct {
	ID          string
	DocumentID  string
	Position    int
	Prompt      string
	Options     []string
	Answer      string // must equal one of Options
	Explanation string
	Difficulty  string // "easy" | "medium" | "hard"
	CreatedAt   time.Time
}

// Flashcard is one front/back study card generated for a document.
type Flashcard struct {
	ID         string
	DocumentID string
	Position   int
	Front      string
	Back       string
	CreatedAt  time.Time
}

// MaterialSet is the full generated output for one job, persisted as a unit.
type MaterialSet struct {
	Questions  []*QuizQuestion
	Flashcards []*Flashcard
}
