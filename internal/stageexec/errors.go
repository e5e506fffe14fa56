package stageexec

import (
	"errors"
	"fmt"

	"dubline/internal/stage"
)

// ErrStopped is returned when a cooperative stop prevented the next stage
// from starting.
var ErrStopped = errors.New("pipeline stopped before next stage")

// ErrLocked is returned when another process holds the job directory.
var ErrLocked = errors.New("job directory is locked by another process")

// StageError records which stage failed and on which attempt.
type StageError struct {
	Stage   stage.Stage
	Attempt int
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (attempt %d): %v", e.Stage, e.Attempt, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage extracts the failing stage from err, if any.
func FailedStage(err error) (stage.Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}
