package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
)

// genRecord is the wire shape of one generated record. The kind discriminator
// decides which fields matter; unknown kinds and records missing required
// fields are dropped rather than failing the whole set.
type genRecord struct {
	Kind        string   `json:"type"` // "question" | "flashcard"
	Question    string   `json:"question,omitempty"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Front       string   `json:"front,omitempty"`
	Back        string   `json:"back,omitempty"`
}

// ParseMaterials extracts the structured record array from a job's final
// accumulated text. The generation service tends to wrap its output in prose
// or code fences, and a multi-unit job concatenates one array per unit, so the
// parse strips fences and collects every balanced top-level array it finds.
// If no valid record survives, the result is an unparseable-result failure;
// retrying the same prompt tends to reproduce the same malformed shape, so
// the failure is classified fatal.
func ParseMaterials(documentID, raw string) (*model.MaterialSet, error) {
	text := stripFences(raw)

	var records []genRecord
	for _, arr := range topLevelArrays(text) {
		var part []genRecord
		if err := json.Unmarshal([]byte(arr), &part); err != nil {
			continue
		}
		records = append(records, part...)
	}
	if len(records) == 0 {
		return nil, domain.NewFailure(domain.FailureParse,
			errors.New("no structured record array found in generation output"))
	}

	now := time.Now()
	set := &model.MaterialSet{}
	for _, rec := range records {
		switch rec.Kind {
		case "question":
			if rec.Question == "" || len(rec.Options) < 2 || !contains(rec.Options, rec.Answer) {
				continue
			}
			set.Questions = append(set.Questions, &model.QuizQuestion{
				ID:          uuid.NewString(),
				DocumentID:  documentID,
				Position:    len(set.Questions),
				Prompt:      rec.Question,
				Options:     rec.Options,
				Answer:      rec.Answer,
				Explanation: rec.Explanation,
				Difficulty:  normalizeDifficulty(rec.Difficulty),
				CreatedAt:   now,
			})
		case "flashcard":
			if rec.Front == "" || rec.Back == "" {
				continue
			}
			set.Flashcards = append(set.Flashcards, &model.Flashcard{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				Position:   len(set.Flashcards),
				Front:      rec.Front,
				Back:       rec.Back,
				CreatedAt:  now,
			})
		}
	}
	if len(set.Questions) == 0 && len(set.Flashcards) == 0 {
		return nil, domain.NewFailure(domain.FailureParse,
			errors.New("record array parsed but contained no valid records"))
	}
	return set, nil
}

// stripFences removes fenced code blocks wrappers (```json ... ```), keeping
// their content. Text outside fences is preserved so arrays emitted bare still
// parse.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var b strings.Builder
	for _, part := range strings.Split(s, "```") {
		// Fence openers may carry a language tag on the first line.
		if idx := strings.IndexByte(part, '\n'); idx >= 0 && isLangTag(part[:idx]) {
			part = part[idx+1:]
		}
		b.WriteString(part)
		b.WriteByte('\n')
	}
	return b.String()
}

func isLangTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// topLevelArrays returns every balanced [...] region not nested inside
// another, respecting JSON string literals and escapes.
func topLevelArrays(s string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy":
		return "easy"
	case "hard":
		return "hard"
	default:
		return "medium"
	}
}
