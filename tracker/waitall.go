package tracker

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lexfrei/go-acsf/api/sitefactory"
	"github.com/lexfrei/go-acsf/observability"
)

// WaitAll tracks several tasks at once and returns an outcome per task ID.
//
// Each round polls every task that is still pending exactly once, then calls
// onProgress for each of them in ascending ID order on the calling goroutine.
// Tasks that reach a terminal state leave the pending set. maxAttempts bounds
// the number of rounds for the whole batch; tasks still pending when it runs
// out get an OutcomeTimedOut. interval is paused between rounds.
//
// Within a round up to WithConcurrency requests run in parallel. Any error
// aborts the whole batch and no outcomes are returned.
func (t *Tracker) WaitAll(
	ctx context.Context,
	tasks []Task,
	maxAttempts int,
	interval time.Duration,
	onProgress ProgressFunc,
) (map[int64]*Outcome, error) {
	seen := make(map[int64]struct{}, len(tasks))
	for _, task := range tasks {
		if err := validate(task, maxAttempts, interval); err != nil {
			return nil, err
		}
		if _, dup := seen[task.ID]; dup {
			return nil, invalidArgument("task %d is listed more than once", task.ID)
		}
		seen[task.ID] = struct{}{}
	}

	outcomes := make(map[int64]*Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes, nil
	}

	pending := slices.Clone(tasks)
	slices.SortFunc(pending, func(a, b Task) int { return cmp.Compare(a.ID, b.ID) })

	last := make(map[int64]*sitefactory.TaskStatus, len(pending))

	for round := 1; round <= maxAttempts; round++ {
		t.logger.Debug("polling round",
			observability.Field{Key: "round", Value: round},
			observability.Field{Key: "pending", Value: len(pending)},
		)

		results, err := t.pollRound(ctx, pending, round)
		if err != nil {
			return nil, err
		}

		remaining := make([]Task, 0, len(pending))
		for _, result := range results {
			if err := notify(onProgress, result); err != nil {
				return nil, err
			}

			if result.Status.IsTerminal() {
				outcomes[result.Task.ID] = t.finish(result.Task, result.Status, round, outcomeKind(result.Status))
				continue
			}

			last[result.Task.ID] = result.Status
			remaining = append(remaining, result.Task)
		}
		pending = remaining

		if len(pending) == 0 {
			return outcomes, nil
		}

		if round < maxAttempts && interval > 0 {
			if err := t.sleep(ctx, interval); err != nil {
				return nil, &TaskError{TaskID: pending[0].ID, Attempt: round, Err: errors.Wrap(err, "tracking stopped")}
			}
		}
	}

	for _, task := range pending {
		outcomes[task.ID] = t.finish(task, last[task.ID], maxAttempts, OutcomeTimedOut)
	}

	return outcomes, nil
}

// pollRound polls every task once and returns the results in the order of tasks.
func (t *Tracker) pollRound(ctx context.Context, tasks []Task, round int) ([]*PollResult, error) {
	results := make([]*PollResult, len(tasks))

	limit := min(t.concurrency, len(tasks))
	if limit <= 1 {
		for i, task := range tasks {
			result, err := t.Poll(ctx, task, round)
			if err != nil {
				return nil, err
			}
			results[i] = result
		}
		return results, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i, task := range tasks {
		group.Go(func() error {
			result, err := t.Poll(groupCtx, task, round)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		//nolint:wrapcheck // Poll returns *TaskError
		return nil, err
	}

	return results, nil
}
