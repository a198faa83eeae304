package tracker

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/api/sitefactory"
	"github.com/lexfrei/go-acsf/observability"
)

// Sleeper pauses between polls. It must return early with an error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Tracker polls long-running tasks until they finish or an attempt budget runs out.
// It keeps no state between calls and is safe for concurrent use.
type Tracker struct {
	fetcher     StatusFetcher
	logger      observability.Logger
	metrics     observability.MetricsRecorder
	concurrency int
	sleep       Sleeper
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for poll and outcome events.
func WithLogger(logger observability.Logger) Option {
	return func(t *Tracker) {
		t.logger = observability.OrNoop(logger)
	}
}

// WithMetrics sets the recorder for poll and outcome metrics.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(t *Tracker) {
		t.metrics = observability.MetricsOrNoop(metrics)
	}
}

// WithConcurrency bounds how many status requests WaitAll issues at once within a round.
// Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(t *Tracker) {
		t.concurrency = max(n, 1)
	}
}

// WithSleeper replaces the pause between polls. Nil restores the default.
func WithSleeper(sleep Sleeper) Option {
	return func(t *Tracker) {
		if sleep == nil {
			sleep = sleepContext
		}
		t.sleep = sleep
	}
}

// New creates a Tracker that reads task status through fetcher.
//
// Example:
//
//	client, _ := sitefactory.New(baseURL, "deployer", apiKey)
//	tr, err := tracker.New(client, tracker.WithConcurrency(4))
func New(fetcher StatusFetcher, opts ...Option) (*Tracker, error) {
	if fetcher == nil {
		return nil, errors.New("status fetcher is required")
	}

	t := &Tracker{
		fetcher:     fetcher,
		logger:      observability.NoopLogger(),
		metrics:     observability.NoopMetricsRecorder(),
		concurrency: 1,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Poll fetches the status of task once. attempt is reported in logs and errors.
// A canceled ctx aborts before the request is sent.
func (t *Tracker) Poll(ctx context.Context, task Task, attempt int) (*PollResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TaskError{TaskID: task.ID, Attempt: attempt, Err: errors.Wrap(err, "tracking stopped")}
	}

	status, err := t.fetcher.GetTaskStatus(ctx, task.ID)
	if err != nil {
		t.metrics.RecordError("task_poll", "fetch")
		return nil, &TaskError{TaskID: task.ID, Attempt: attempt, Err: err}
	}
	if status == nil {
		status = &sitefactory.TaskStatus{
			TaskID:       task.ID,
			State:        sitefactory.TaskStateUnknown,
			StatusString: "unknown (empty status)",
		}
	}

	t.metrics.RecordTaskPoll(string(status.State))
	t.logger.Debug("polled task",
		observability.Field{Key: "task_id", Value: task.ID},
		observability.Field{Key: "attempt", Value: attempt},
		observability.Field{Key: "state", Value: string(status.State)},
		observability.Field{Key: "status", Value: status.StatusString},
	)

	return &PollResult{Task: task, Status: status, Attempt: attempt}, nil
}

// Wait polls task up to maxAttempts times, pausing interval between polls,
// until it reaches a terminal state.
//
// onProgress, if not nil, is called after every poll. A task that finishes in
// an error state or runs out of attempts is reported through the Outcome, not
// as an error. Errors are returned for invalid arguments (ErrInvalidArgument),
// failed status requests, a done ctx and onProgress errors (ErrCallbackAborted);
// all but the first are *TaskError.
//
// An interval of zero polls back to back.
func (t *Tracker) Wait(
	ctx context.Context,
	task Task,
	maxAttempts int,
	interval time.Duration,
	onProgress ProgressFunc,
) (*Outcome, error) {
	if err := validate(task, maxAttempts, interval); err != nil {
		return nil, err
	}

	var last *sitefactory.TaskStatus
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := t.Poll(ctx, task, attempt)
		if err != nil {
			return nil, err
		}
		last = result.Status

		if err := notify(onProgress, result); err != nil {
			return nil, err
		}

		if last.IsTerminal() {
			return t.finish(task, last, attempt, outcomeKind(last)), nil
		}

		if attempt < maxAttempts {
			if err := t.pause(ctx, task, attempt, interval); err != nil {
				return nil, err
			}
		}
	}

	return t.finish(task, last, maxAttempts, OutcomeTimedOut), nil
}

func (t *Tracker) pause(ctx context.Context, task Task, attempt int, interval time.Duration) error {
	if interval == 0 {
		return nil
	}
	if err := t.sleep(ctx, interval); err != nil {
		return &TaskError{TaskID: task.ID, Attempt: attempt, Err: errors.Wrap(err, "tracking stopped")}
	}
	return nil
}

func (t *Tracker) finish(task Task, status *sitefactory.TaskStatus, attempts int, kind OutcomeKind) *Outcome {
	t.metrics.RecordTaskOutcome(string(kind), attempts)

	fields := []observability.Field{
		{Key: "task_id", Value: task.ID},
		{Key: "outcome", Value: string(kind)},
		{Key: "attempts", Value: attempts},
		{Key: "status", Value: status.StatusString},
	}
	if kind == OutcomeSucceeded {
		t.logger.Info("task finished", fields...)
	} else {
		t.logger.Warn("task did not succeed", fields...)
	}

	return &Outcome{Task: task, Status: status, Attempts: attempts, Result: kind}
}

func notify(onProgress ProgressFunc, result *PollResult) error {
	if onProgress == nil {
		return nil
	}
	if err := onProgress(result.Task, result.Status); err != nil {
		return &TaskError{
			TaskID:  result.Task.ID,
			Attempt: result.Attempt,
			Err:     errors.Mark(errors.Wrap(err, "progress callback failed"), ErrCallbackAborted),
		}
	}
	return nil
}

func validate(task Task, maxAttempts int, interval time.Duration) error {
	if task.ID <= 0 {
		return invalidArgument("task ID must be positive, got %d", task.ID)
	}
	if maxAttempts <= 0 {
		return invalidArgument("max attempts must be positive, got %d", maxAttempts)
	}
	if interval < 0 {
		return invalidArgument("poll interval must not be negative, got %s", interval)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
