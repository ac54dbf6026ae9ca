package model

// EventPhase tags a ProgressEvent.
type EventPhase string

const (
	PhaseStarted   EventPhase = "started"
	PhaseProgress  EventPhase = "progress"
	PhaseHeartbeat EventPhase = "heartbeat"
	PhaseWarning   EventPhase = "warning"
	PhaseDone      EventPhase = "done"
	PhaseError     EventPhase = "error"
)

// ProgressEvent is one message relayed to the caller while a job runs.
// For a given job events are observed in emission order; done or error is
// always last. Heartbeats carry no payload and are pure interleavings.
type ProgressEvent struct {
	Phase   EventPhase
	Message string

	Chunk int // 1-based, valid for started/progress/warning
	Total int

	Chars int // running character count of the current unit, progress only

	QuestionsCreated  int // done only
	FlashcardsCreated int // done only

	Err string // error only
}

func (e ProgressEvent) Terminal() bool {
	return e.Phase == PhaseDone || e.Phase == PhaseError
}
