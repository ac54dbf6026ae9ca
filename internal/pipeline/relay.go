package pipeline

import (
	"context"
	"sync"
	"time"

	"studygen/internal/domain/model"
	"studygen/internal/infra/metrics"
)

// Relay delivers ProgressEvents produced anywhere in the pipeline to one
// caller-held connection, in emission order. While no substantive event flows
// it injects synthetic heartbeats so intermediary proxies never see an idle
// connection. The terminal event closes the channel; emitting after that, or
// after the consumer is gone, is a silent no-op.
type Relay struct {
	ctx    context.Context
	events chan model.ProgressEvent
	stop   chan struct{}

	mu       sync.Mutex
	closed   bool
	lastEmit time.Time
}

// NewRelay binds a relay to the consumer's context; when that context ends the
// consumer is considered gone and emission degrades to a no-op. A heartbeat is
// injected whenever interval elapses with no substantive event.
func NewRelay(ctx context.Context, interval time.Duration) *Relay {
	r := &Relay{
		ctx:      ctx,
		events:   make(chan model.ProgressEvent, 16),
		stop:     make(chan struct{}),
		lastEmit: time.Now(),
	}
	go r.heartbeatLoop(interval)
	return r
}

// Events is the single outbound stream. It is closed after the terminal event.
func (r *Relay) Events() <-chan model.ProgressEvent { return r.events }

// Emit relays one non-terminal event. Terminal events must go through
// CloseWith so exactly one of them exists per job.
func (r *Relay) Emit(ev model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send(ev)
}

// CloseWith emits the terminal event and closes the stream. Only the first
// call wins; later calls are no-ops.
func (r *Relay) CloseWith(terminal model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.send(terminal)
	r.closed = true
	close(r.stop)
	close(r.events)
}

// send delivers under r.mu unless the relay is closed or the consumer is gone.
func (r *Relay) send(ev model.ProgressEvent) {
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
		r.lastEmit = time.Now()
	case <-r.ctx.Done():
	}
}

func (r *Relay) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			if !r.closed && time.Since(r.lastEmit) >= interval {
				r.send(model.ProgressEvent{Phase: model.PhaseHeartbeat})
				metrics.IncHeartbeat()
			}
			r.mu.Unlock()
		case <-r.stop:
			return
		case <-r.ctx.Done():
			return
		}
	}
}
