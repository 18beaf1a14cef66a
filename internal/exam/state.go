package exam

import "time"

// State describes where an exam sits relative to its scheduled window.
// It is never stored; it is always derived from the window and a clock.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateStarted    State = "STARTED"
	StateFinished   State = "FINISHED"
)

// StateAt reports the exam state at the given instant. The window is
// half-open: the exam is STARTED at startAt and FINISHED at endAt.
func StateAt(startAt, endAt, now time.Time) State {
	if now.Before(startAt) {
		return StateNotStarted
	}
	if now.Before(endAt) {
		return StateStarted
	}
	return StateFinished
}
