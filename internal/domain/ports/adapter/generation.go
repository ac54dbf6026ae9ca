package adapter

import "context"

// StreamChunk is one event from a streaming generation call. A chunk with a
// non-nil Err is terminal; the channel is closed after it. Err values
// classifiable at the provider boundary are *domain.Failure.
type StreamChunk struct {
	Text string
	Err  error
}

// GenerateRequest carries one streaming call's parameters.
type GenerateRequest struct {
	Model           string
	System          string
	Prompt          string
	MaxOutputTokens int
}

// GenerationStreamer is the port for streaming text generation. Implementations
// must honor ctx cancellation by aborting the underlying network call and
// closing the returned channel promptly; the accumulation and all deadline
// bookkeeping live in the consumer.
type GenerationStreamer interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// StreamGenerate starts one attempt and returns its chunk stream. A nil
	// error means the call was dispatched; transport and provider errors
	// discovered mid-stream arrive as a terminal chunk.
	StreamGenerate(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error)

	// CountTokens estimates prompt tokens for the given model (best-effort
	// when the provider has no exact counter).
	CountTokens(ctx context.Context, model, text string) (int, error)
}
