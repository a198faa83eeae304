package tracker

import (
	"context"
	"strconv"

	"github.com/lexfrei/go-acsf/api/sitefactory"
)

// DefaultTaskType is the resource type of tasks created with NewTask.
const DefaultTaskType = "Task"

// Task identifies a server-side job. Tasks are plain values; tracking never modifies them.
type Task struct {
	ID int64
	// Type is the owning resource type, e.g. "Task" or "Backup".
	Type string
	// Label is an optional description such as the site a backup belongs to.
	Label string
}

// NewTask returns a Task of DefaultTaskType.
func NewTask(id int64) Task {
	return Task{ID: id, Type: DefaultTaskType}
}

// String returns a short human-readable description of the task.
func (t Task) String() string {
	kind := t.Type
	if kind == "" {
		kind = DefaultTaskType
	}
	s := kind + " " + strconv.FormatInt(t.ID, 10)
	if t.Label != "" {
		s += " (" + t.Label + ")"
	}
	return s
}

// OutcomeKind tells how tracking of a task ended.
type OutcomeKind string

const (
	// OutcomeSucceeded means the task reached a successful terminal state.
	OutcomeSucceeded OutcomeKind = "succeeded"
	// OutcomeFailed means the task reached an error or canceled state.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeTimedOut means the attempt budget ran out while the task was still pending.
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// Outcome is the final result of tracking one task.
// Status is the last status observed: terminal unless Result is OutcomeTimedOut.
type Outcome struct {
	Task     Task
	Status   *sitefactory.TaskStatus
	Attempts int
	Result   OutcomeKind
}

// Succeeded reports whether the task finished successfully.
func (o *Outcome) Succeeded() bool { return o != nil && o.Result == OutcomeSucceeded }

// Failed reports whether the task finished in an error or canceled state.
func (o *Outcome) Failed() bool { return o != nil && o.Result == OutcomeFailed }

// TimedOut reports whether the attempt budget ran out before the task finished.
func (o *Outcome) TimedOut() bool { return o != nil && o.Result == OutcomeTimedOut }

// PollResult pairs a task with the status observed on one poll.
type PollResult struct {
	Task    Task
	Status  *sitefactory.TaskStatus
	Attempt int
}

// ProgressFunc is called synchronously after every poll, including the final
// terminal one, with the exact status observed. A non-nil error stops tracking.
type ProgressFunc func(task Task, status *sitefactory.TaskStatus) error

// StatusFetcher fetches the current status of a task with one request.
// *sitefactory.Client satisfies it.
type StatusFetcher interface {
	GetTaskStatus(ctx context.Context, taskID int64) (*sitefactory.TaskStatus, error)
}

var _ StatusFetcher = (*sitefactory.Client)(nil)

func outcomeKind(status *sitefactory.TaskStatus) OutcomeKind {
	if status.State == sitefactory.TaskStateSuccess {
		return OutcomeSucceeded
	}
	return OutcomeFailed
}
