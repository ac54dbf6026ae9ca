package ai

import (
	"context"

	"studygen/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.GenerationStreamer = (*limitedStreamer)(nil)

type limitedStreamer struct {
	inner adapter.GenerationStreamer
	sem   chan struct{}
}

// NewLimitedStreamer bounds concurrent in-flight streaming calls across all
// jobs. The slot is held for the whole life of a stream, not just its
// dispatch, so the bound is on open provider connections.
func NewLimitedStreamer(inner adapter.GenerationStreamer, maxConcurrent int) adapter.GenerationStreamer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedStreamer{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedStreamer) Name() string { return l.inner.Name() }

func (l *limitedStreamer) StreamGenerate(ctx context.Context, req adapter.GenerateRequest) (<-chan adapter.StreamChunk, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	inner, err := l.inner.StreamGenerate(ctx, req)
	if err != nil {
		<-l.sem
		return nil, err
	}
	out := make(chan adapter.StreamChunk)
	go func() {
		defer func() { <-l.sem }()
		defer close(out)
		for chunk := range inner {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (l *limitedStreamer) CountTokens(ctx context.Context, model, text string) (int, error) {
	return l.inner.CountTokens(ctx, model, text)
}
