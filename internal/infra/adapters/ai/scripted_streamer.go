package ai

import (
	"context"
	"time"

	"studygen/internal/domain/ports/adapter"
)

var _ adapter.GenerationStreamer = (*ScriptedStreamer)(nil)

// ScriptedStreamer replays a canned response in fixed-size chunks. Used in dev
// mode so the whole pipeline runs without a provider key or network access.
type ScriptedStreamer struct {
	Response  string
	ChunkSize int
	Delay     time.Duration
}

const devResponse = `[
  {"type":"question","question":"What does the sample cover?","options":["Nothing","The sample material","Everything","Unknown"],"answer":"The sample material","difficulty":"easy"},
  {"type":"flashcard","front":"Sample front","back":"Sample back"}
]`

func NewScriptedStreamer() *ScriptedStreamer {
	return &ScriptedStreamer{Response: devResponse, ChunkSize: 32, Delay: 20 * time.Millisecond}
}

func (s *ScriptedStreamer) Name() string { return "scripted" }

func (s *ScriptedStreamer) StreamGenerate(ctx context.Context, _ adapter.GenerateRequest) (<-chan adapter.StreamChunk, error) {
	out := make(chan adapter.StreamChunk)
	go func() {
		defer close(out)
		text := s.Response
		size := s.ChunkSize
		if size <= 0 {
			size = 32
		}
		for len(text) > 0 {
			n := size
			if n > len(text) {
				n = len(text)
			}
			select {
			case out <- adapter.StreamChunk{Text: text[:n]}:
				text = text[n:]
			case <-ctx.Done():
				return
			}
			if s.Delay > 0 {
				select {
				case <-time.After(s.Delay):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *ScriptedStreamer) CountTokens(_ context.Context, _ string, text string) (int, error) {
	return (len(text) + 3) / 4, nil
}
