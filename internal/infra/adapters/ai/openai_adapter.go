package ai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"studygen/internal/domain"
	"studygen/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.GenerationStreamer = (*OpenAIStreamer)(nil)

// OpenAIStreamer implements adapter.GenerationStreamer over the Chat
// Completions streaming API.
type OpenAIStreamer struct {
	client openai.Client
	model  string
}

func NewOpenAIStreamer(apiKey, model string) (*OpenAIStreamer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIStreamer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAIStreamer) Name() string { return "openai" }

// StreamGenerate dispatches one streaming chat completion. The producer
// goroutine exits when the stream ends, errors, or ctx is cancelled; a
// terminal error chunk is always followed by channel close.
func (o *OpenAIStreamer) StreamGenerate(ctx context.Context, req adapter.GenerateRequest) (<-chan adapter.StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	out := make(chan adapter.StreamChunk)
	go func() {
		defer close(out)
		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- adapter.StreamChunk{Text: delta}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case out <- adapter.StreamChunk{Err: classifyOpenAI(err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (o *OpenAIStreamer) CountTokens(ctx context.Context, model, text string) (int, error) {
	if model == "" {
		model = o.model
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model: estimate instead of failing the call.
		return (len(text) + 3) / 4, nil
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// classifyOpenAI maps an SDK error to a typed failure. Context errors pass
// through untouched so cancellation is never mistaken for a provider fault.
func classifyOpenAI(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		// Transport-level trouble (reset connection, DNS): worth a retry.
		return domain.NewFailure(domain.FailureOverloaded, err)
	}
	var retryAfter time.Duration
	if apierr.StatusCode == http.StatusTooManyRequests && apierr.Response != nil {
		retryAfter = parseRetryAfter(apierr.Response.Header.Get("Retry-After"))
	}
	return domain.ClassifyStatus(apierr.StatusCode, retryAfter, err)
}

// parseRetryAfter reads the delay-seconds form of the header. The HTTP-date
// form is rare on generation APIs and falls back to zero (policy floor).
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
