// File: internal/infra/web/sse.go
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"studygen/internal/domain/model"
	"studygen/internal/pipeline"
)

// progressFrame is the wire shape of a non-terminal data frame. Heartbeats
// are sent as SSE comment frames and never carry JSON.
type progressFrame struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Chunk   int    `json:"chunk,omitempty"`
	Total   int    `json:"total,omitempty"`
	Chars   int    `json:"chars,omitempty"`
}

// doneFrame is the single success terminal frame.
type doneFrame struct {
	Success           bool `json:"success"`
	QuestionsCreated  int  `json:"questionsCreated"`
	FlashcardsCreated int  `json:"flashcardsCreated"`
}

// errorFrame is the single failure terminal frame.
type errorFrame struct {
	Error string `json:"error"`
}

// streamEvents drains the relay onto w as server-sent events. It returns once
// the relay closes, which happens after the terminal frame or when the job's
// context is cancelled. Exactly one terminal frame is written per job; the
// relay guarantees exactly one terminal event.
func streamEvents(w http.ResponseWriter, relay *pipeline.Relay) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range relay.Events() {
		if ev.Phase == model.PhaseHeartbeat {
			// Comment frames keep intermediaries from timing out the
			// connection without polluting the event stream.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return err
			}
			flusher.Flush()
			continue
		}

		var frame any
		switch ev.Phase {
		case model.PhaseDone:
			frame = doneFrame{
				Success:           true,
				QuestionsCreated:  ev.QuestionsCreated,
				FlashcardsCreated: ev.FlashcardsCreated,
			}
		case model.PhaseError:
			frame = errorFrame{Error: ev.Err}
		default:
			status := string(ev.Phase)
			if ev.Phase == model.PhaseProgress {
				status = "processing"
			}
			frame = progressFrame{
				Status:  status,
				Message: ev.Message,
				Chunk:   ev.Chunk,
				Total:   ev.Total,
				Chars:   ev.Chars,
			}
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
	}
	return nil
}
