package tracker

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidArgument is returned before any poll when a task, attempt budget or interval is unusable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCallbackAborted marks errors returned by a ProgressFunc.
	ErrCallbackAborted = errors.New("progress callback aborted tracking")
)

// TaskError is a failure that aborted tracking of a task: a failed status
// fetch, a canceled context or a ProgressFunc error.
// A task that finishes in an error state is not a TaskError; see Outcome.
type TaskError struct {
	TaskID  int64
	Attempt int
	Err     error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: attempt %d: %v", e.TaskID, e.Attempt, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskError reports whether err is or wraps a *TaskError.
func IsTaskError(err error) bool {
	var taskErr *TaskError
	return errors.As(err, &taskErr)
}

// TaskIDFromError returns the task ID carried by a *TaskError in err's chain.
func TaskIDFromError(err error) (int64, bool) {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.TaskID, true
	}
	return 0, false
}

func invalidArgument(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}
