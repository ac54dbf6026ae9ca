package pipeline

import (
	"fmt"

	"studygen/internal/domain/model"
	"studygen/internal/domain/ports/adapter"
)

const systemPrompt = `You create study materials from source text. Respond with a single JSON array and nothing else: no prose, no code fences. Each element is either
{"type":"question","question":"...","options":["...","...","...","..."],"answer":"...","explanation":"...","difficulty":"easy|medium|hard"}
or
{"type":"flashcard","front":"...","back":"..."}.
The answer field must repeat one of the options exactly.`

// buildRequest assembles the streaming call for one work unit. Append-mode
// units carry the running position so the model covers only its own slice and
// does not restate material from earlier units.
func buildRequest(job *model.GenerationJob, unit model.WorkUnit, totalUnits, maxOutputTokens int) adapter.GenerateRequest {
	header := fmt.Sprintf("Create quiz questions and flashcards for the following material. Write them in %s.\n", languageOrDefault(job.Language))
	if unit.Append {
		header += fmt.Sprintf(
			"This is part %d of %d of the same document; earlier parts are already covered. Cover only this part and emit a fresh JSON array.\n",
			unit.Index+1, totalUnits)
	}
	return adapter.GenerateRequest{
		Model:           job.Model,
		System:          systemPrompt,
		Prompt:          header + "\n" + unit.Text,
		MaxOutputTokens: maxOutputTokens,
	}
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return "English"
	}
	return lang
}
