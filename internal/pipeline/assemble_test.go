package pipeline

import (
	"testing"

	"studygen/internal/domain"
)

func TestParseMaterials_BareArray(t *testing.T) {
	raw := `[
		{"type":"question","question":"What is 2+2?","options":["3","4"],"answer":"4","difficulty":"easy"},
		{"type":"flashcard","front":"2+2","back":"4"}
	]`

	set, err := ParseMaterials("doc-1", raw)
	if err != nil {
		t.Fatalf("ParseMaterials returned error: %v", err)
	}
	if len(set.Questions) != 1 || len(set.Flashcards) != 1 {
		t.Fatalf("got %d questions, %d flashcards", len(set.Questions), len(set.Flashcards))
	}
	q := set.Questions[0]
	if q.Prompt != "What is 2+2?" || q.Answer != "4" || q.Difficulty != "easy" {
		t.Errorf("unexpected question: %+v", q)
	}
	if q.DocumentID != "doc-1" || set.Flashcards[0].DocumentID != "doc-1" {
		t.Error("records not bound to the document")
	}
}

func TestParseMaterials_FencedWithProse(t *testing.T) {
	raw := "Sure! Here are the study materials you asked for:\n\n" +
		"```json\n" +
		`[{"type":"flashcard","front":"TCP","back":"Transmission Control Protocol"}]` +
		"\n```\n\nLet me know if you need more." // trailing prose is ignored

	set, err := ParseMaterials("doc-1", raw)
	if err != nil {
		t.Fatalf("ParseMaterials returned error: %v", err)
	}
	if len(set.Flashcards) != 1 || set.Flashcards[0].Front != "TCP" {
		t.Errorf("unexpected set: %+v", set)
	}
}

func TestParseMaterials_MergesArraysFromAppendedUnits(t *testing.T) {
	// A multi-unit job concatenates one array per unit.
	raw := `[{"type":"flashcard","front":"a","back":"1"}]` + "\n" +
		"```json\n[{\"type\":\"flashcard\",\"front\":\"b\",\"back\":\"2\"}]\n```\n" +
		`[{"type":"question","question":"q?","options":["x","y"],"answer":"x"}]`

	set, err := ParseMaterials("doc-1", raw)
	if err != nil {
		t.Fatalf("ParseMaterials returned error: %v", err)
	}
	if len(set.Flashcards) != 2 || len(set.Questions) != 1 {
		t.Fatalf("got %d flashcards, %d questions", len(set.Flashcards), len(set.Questions))
	}
	// Positions are assigned per-kind in encounter order.
	if set.Flashcards[0].Front != "a" || set.Flashcards[0].Position != 0 ||
		set.Flashcards[1].Front != "b" || set.Flashcards[1].Position != 1 {
		t.Errorf("merge order lost: %+v %+v", set.Flashcards[0], set.Flashcards[1])
	}
}

func TestParseMaterials_SkipsInvalidRecords(t *testing.T) {
	raw := `[
		{"type":"question","question":"no options","answer":"x"},
		{"type":"question","question":"answer not an option","options":["a","b"],"answer":"c"},
		{"type":"flashcard","front":"","back":"orphan"},
		{"type":"mystery","front":"?","back":"?"},
		{"type":"flashcard","front":"keep","back":"me","difficulty":"EXTREME"}
	]`

	set, err := ParseMaterials("doc-1", raw)
	if err != nil {
		t.Fatalf("ParseMaterials returned error: %v", err)
	}
	if len(set.Questions) != 0 {
		t.Errorf("invalid questions kept: %+v", set.Questions)
	}
	if len(set.Flashcards) != 1 || set.Flashcards[0].Front != "keep" {
		t.Errorf("expected only the valid flashcard, got %+v", set.Flashcards)
	}
}

func TestParseMaterials_DifficultyNormalized(t *testing.T) {
	raw := `[
		{"type":"question","question":"q1","options":["a","b"],"answer":"a","difficulty":"HARD"},
		{"type":"question","question":"q2","options":["a","b"],"answer":"a","difficulty":"impossible"},
		{"type":"question","question":"q3","options":["a","b"],"answer":"a"}
	]`

	set, err := ParseMaterials("doc-1", raw)
	if err != nil {
		t.Fatalf("ParseMaterials returned error: %v", err)
	}
	want := []string{"hard", "medium", "medium"}
	for i, q := range set.Questions {
		if q.Difficulty != want[i] {
			t.Errorf("question %d difficulty = %q, want %q", i, q.Difficulty, want[i])
		}
	}
}

func TestParseMaterials_ProseOnlyFails(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not generate materials for this text, sorry.",
		"[not json at all",
		`{"type":"flashcard","front":"object","back":"not array"}`,
	} {
		_, err := ParseMaterials("doc-1", raw)
		if kind := domain.AsFailure(err).Kind; kind != domain.FailureParse {
			t.Errorf("raw %q: expected parse failure, got %v", raw, err)
		}
	}
}

func TestTopLevelArrays_RespectsStrings(t *testing.T) {
	// Brackets inside string literals must not open or close regions.
	s := `[{"type":"flashcard","front":"a ] tricky [ string","back":"b"}]`
	arrays := topLevelArrays(s)
	if len(arrays) != 1 || arrays[0] != s {
		t.Fatalf("got %v", arrays)
	}
}
