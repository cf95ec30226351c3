package job

import "time"

// State is the controller lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateSubmitting     State = "submitting"
	StatePolling        State = "polling"
	StateLoadingResults State = "loading-results"
	StateComplete       State = "complete"
	StateError          State = "error"
)

// Busy reports whether a job lifecycle is in flight.
func (s State) Busy() bool {
	switch s {
	case StateSubmitting, StatePolling, StateLoadingResults:
		return true
	}
	return false
}

// Terminal reports whether the state ends a lifecycle.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Stage is the user-facing processing stage.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageLoadingModel Stage = "loading-model"
	StageProcessing   Stage = "processing"
	StageExporting    Stage = "exporting"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

var stageRank = map[Stage]int{
	StageIdle:         0,
	StageLoadingModel: 1,
	StageProcessing:   2,
	StageExporting:    3,
	StageComplete:     4,
}

// CanAdvance reports whether moving from s to next is allowed. Stages only
// move forward; error is reachable from anywhere and left only through a
// retry, which restarts at loading-model.
func (s Stage) CanAdvance(next Stage) bool {
	if next == StageError {
		return s != StageError
	}
	if s == StageError {
		return next == StageLoadingModel
	}
	return stageRank[next] >= stageRank[s]
}

// ProcessingStatus describes job progress.
type ProcessingStatus struct {
	Stage    Stage
	Progress int
	Message  string
	ETA      time.Duration
	Error    string
}

// HasETA reports whether an estimate is available.
func (p ProcessingStatus) HasETA() bool {
	return p.ETA > 0
}

// IdleStatus is the reset value.
func IdleStatus() ProcessingStatus {
	return ProcessingStatus{Stage: StageIdle, Message: "Waiting for a file"}
}

// advance merges an update into p. Stage never moves backwards and progress
// never decreases while the same job is polled.
func (p ProcessingStatus) advance(update ProcessingStatus) ProcessingStatus {
	next := p
	if p.Stage.CanAdvance(update.Stage) {
		next.Stage = update.Stage
	}
	if update.Progress > next.Progress {
		next.Progress = clampProgress(update.Progress)
	}
	if update.Message != "" {
		next.Message = update.Message
	}
	next.ETA = update.ETA
	return next
}

func clampProgress(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
