// Package planner splits raw document text into bounded, ordered work units.
//
// Splits happen only on safe boundaries: form feeds (page breaks) when the
// document has them, blank lines (paragraphs) otherwise. The partition is a
// pure function of (content, bound) so a re-submitted job always reproduces
// identical units.
package planner

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"studygen/internal/domain"
	"studygen/internal/domain/model"
)

// TokenCounter estimates tokens for a piece of text. Must be deterministic.
type TokenCounter func(text string) int

type Planner struct {
	maxTokens int
	count     TokenCounter
}

// New builds a planner bounded at maxTokens per unit, counting with the
// tiktoken encoding for model when one exists and a bytes/4 estimate
// otherwise.
func New(model string, maxTokens int) *Planner {
	return NewWithCounter(counterForModel(model), maxTokens)
}

func NewWithCounter(count TokenCounter, maxTokens int) *Planner {
	return &Planner{maxTokens: maxTokens, count: count}
}

// TokenEstimator is the counting side of a generation provider.
type TokenEstimator interface {
	CountTokens(ctx context.Context, model, text string) (int, error)
}

// NewForProvider builds a planner that counts with the provider's own
// estimator so unit bounds line up with what the provider will bill. When the
// estimator cannot count (network failure, unknown model) the local encoding
// takes over, keeping the partition total rather than failing the plan.
func NewForProvider(ctx context.Context, est TokenEstimator, model string, maxTokens int) *Planner {
	local := counterForModel(model)
	return NewWithCounter(func(text string) int {
		if n, err := est.CountTokens(ctx, model, text); err == nil && n > 0 {
			return n
		}
		return local(text)
	}, maxTokens)
}

// Plan partitions content into ordered units, each within the token bound.
// Content below the bound yields exactly one unit. A single record that alone
// exceeds the bound is a configuration error, never a silent truncation.
// Every unit after the first is append-mode: it continues the accumulated
// output of its predecessor and must run after it.
func (p *Planner) Plan(ctx context.Context, jobID, content string) ([]model.WorkUnit, error) {
	if p.maxTokens <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	records := splitRecords(content)
	if len(records) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	var units []model.WorkUnit
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		units = append(units, model.WorkUnit{
			JobID:      jobID,
			Index:      len(units),
			Text:       strings.Join(cur, "\n\n"),
			TokenCount: curTokens,
			Append:     len(units) > 0,
		})
		cur = nil
		curTokens = 0
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := p.count(rec)
		if t > p.maxTokens {
			return nil, domain.ErrRecordTooLarge
		}
		if curTokens+t > p.maxTokens {
			flush()
		}
		cur = append(cur, rec)
		curTokens += t
	}
	flush()
	return units, nil
}

// splitRecords yields the atomic records of a document: pages when form feeds
// are present, paragraphs otherwise. Empty records are dropped; record text is
// trimmed so the partition does not depend on surrounding whitespace.
func splitRecords(content string) []string {
	var raw []string
	if strings.ContainsRune(content, '\f') {
		raw = strings.Split(content, "\f")
	} else {
		raw = strings.Split(content, "\n\n")
	}
	records := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			records = append(records, r)
		}
	}
	return records
}

func counterForModel(model string) TokenCounter {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	}
	// Unknown model: ceil(utf8 bytes / 4) is a serviceable estimate.
	return func(text string) int {
		return (len(text) + 3) / 4
	}
}
