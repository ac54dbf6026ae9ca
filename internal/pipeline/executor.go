package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studygen/internal/domain"
	"studygen/internal/domain/ports/adapter"
	"studygen/internal/infra/metrics"
)

// ExecutorConfig holds the deadlines of one streaming attempt.
type ExecutorConfig struct {
	OverallTimeout time.Duration // absolute cap per attempt
	StallTimeout   time.Duration // rolling; reset on every received chunk
	ReportChars    int           // min accumulated chars between progress reports
}

// StreamExecutor drives one work unit's streaming call end-to-end: it retries
// per the policy, enforces both deadlines, accumulates chunks in memory, and
// reports running progress. Accumulation is discarded on failure; nothing is
// persisted here.
type StreamExecutor struct {
	streamer adapter.GenerationStreamer
	policy   RetryPolicy
	cfg      ExecutorConfig
	log      *zerolog.Logger
}

func NewStreamExecutor(streamer adapter.GenerationStreamer, policy RetryPolicy, cfg ExecutorConfig, log *zerolog.Logger) *StreamExecutor {
	return &StreamExecutor{streamer: streamer, policy: policy, cfg: cfg, log: log}
}

// Streamer exposes the underlying provider, for callers that need its token
// accounting.
func (e *StreamExecutor) Streamer() adapter.GenerationStreamer {
	return e.streamer
}

// Generate runs attempts until one succeeds, the policy gives up, or ctx is
// cancelled. onProgress (optional) receives the running character count of the
// current attempt; onRetry (optional) fires once per scheduled retry, before
// the delay elapses. The returned error on give-up is the last attempt's
// error, verbatim.
func (e *StreamExecutor) Generate(ctx context.Context, req adapter.GenerateRequest, onProgress func(chars int), onRetry func(kind domain.FailureKind, delay time.Duration)) (string, error) {
	attempt := 0
	for {
		attempt++
		start := time.Now()
		text, err := e.attempt(ctx, req, onProgress)
		metrics.ObserveGeneration(e.streamer.Name(), req.Model, len(text), time.Since(start).Seconds(), err == nil)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			// Caller cancellation is never retried.
			return "", ctx.Err()
		}

		d := e.policy.Decide(err, attempt)
		if !d.Retry {
			return "", err
		}
		kind := domain.AsFailure(err).Kind
		metrics.IncRetry(string(kind))
		e.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("kind", string(kind)).
			Dur("delay", d.Delay).
			Msg("streaming attempt failed, retrying")
		if onRetry != nil {
			onRetry(kind, d.Delay)
		}

		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// attempt executes exactly one network call. Two timers run beside the chunk
// channel: the overall timer is armed once, the stall timer re-arms on every
// chunk. Whichever fires first cancels the underlying call; the others are
// dead once the function returns.
func (e *StreamExecutor) attempt(ctx context.Context, req adapter.GenerateRequest, onProgress func(chars int)) (string, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := e.streamer.StreamGenerate(attemptCtx, req)
	if err != nil {
		return "", err
	}

	overall := time.NewTimer(e.cfg.OverallTimeout)
	defer overall.Stop()
	stall := time.NewTimer(e.cfg.StallTimeout)
	defer stall.Stop()

	var buf strings.Builder
	unreported := 0

	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return buf.String(), nil
			}
			if chunk.Err != nil {
				return "", chunk.Err
			}
			metrics.IncStreamChunk(e.streamer.Name(), req.Model)
			buf.WriteString(chunk.Text)
			unreported += len(chunk.Text)
			if onProgress != nil && unreported >= e.cfg.ReportChars {
				onProgress(buf.Len())
				unreported = 0
			}
			if !stall.Stop() {
				<-stall.C
			}
			stall.Reset(e.cfg.StallTimeout)

		case <-stall.C:
			cancel()
			drain(ch)
			metrics.IncStall()
			return "", domain.NewFailure(domain.FailureStalled,
				fmt.Errorf("stream produced no data for %s", e.cfg.StallTimeout))

		case <-overall.C:
			cancel()
			drain(ch)
			return "", domain.NewFailure(domain.FailureTimedOut,
				fmt.Errorf("attempt exceeded %s", e.cfg.OverallTimeout))

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// drain lets the producer goroutine finish after its context was cancelled.
func drain(ch <-chan adapter.StreamChunk) {
	go func() {
		for range ch {
		}
	}()
}
