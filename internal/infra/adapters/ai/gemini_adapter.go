package ai

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"studygen/internal/domain"
	"studygen/internal/domain/ports/adapter"
)

var _ adapter.GenerationStreamer = (*GeminiStreamer)(nil)

// GeminiStreamer implements adapter.GenerationStreamer using the official
// Gemini SDK's streaming generation.
type GeminiStreamer struct {
	client       *genai.Client
	defaultModel string
}

func NewGeminiStreamer(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiStreamer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiStreamer{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiStreamer) Name() string { return "gemini" }

func (g *GeminiStreamer) StreamGenerate(ctx context.Context, req adapter.GenerateRequest) (<-chan adapter.StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	out := make(chan adapter.StreamChunk)
	go func() {
		defer close(out)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				select {
				case out <- adapter.StreamChunk{Err: classifyGemini(err)}:
				case <-ctx.Done():
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case out <- adapter.StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (g *GeminiStreamer) CountTokens(ctx context.Context, model, text string) (int, error) {
	if model == "" {
		model = g.defaultModel
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.client.Models.CountTokens(ctx, model, contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func classifyGemini(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return domain.NewFailure(domain.FailureOverloaded, err)
	}
	// Gemini reports quota exhaustion as 429 without a structured hint;
	// the policy floor applies.
	if apiErr.Code == http.StatusTooManyRequests {
		return domain.RateLimitedFailure(0, err)
	}
	return domain.ClassifyStatus(apiErr.Code, 0, err)
}
