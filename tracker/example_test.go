package tracker_test

import (
	"context"
	"fmt"

	"github.com/lexfrei/go-acsf/api/sitefactory"
	"github.com/lexfrei/go-acsf/tracker"
)

// scripted returns the next state of each task on every call.
type scripted map[int64][]sitefactory.TaskState

func (s scripted) GetTaskStatus(_ context.Context, taskID int64) (*sitefactory.TaskStatus, error) {
	states := s[taskID]
	state := states[0]
	if len(states) > 1 {
		s[taskID] = states[1:]
	}
	return &sitefactory.TaskStatus{TaskID: taskID, State: state, StatusString: string(state)}, nil
}

func ExampleTracker_Wait() {
	fetcher := scripted{
		42: {sitefactory.TaskStateProcessing, sitefactory.TaskStateSuccess},
	}

	tr, err := tracker.New(fetcher)
	if err != nil {
		fmt.Println(err)
		return
	}

	outcome, err := tr.Wait(context.Background(), tracker.NewTask(42), 5, 0,
		func(task tracker.Task, status *sitefactory.TaskStatus) error {
			fmt.Printf("%s: %s\n", task, status.State)
			return nil
		})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(outcome.Result, outcome.Attempts)
	// Output:
	// Task 42: processing
	// Task 42: success
	// succeeded 2
}

func ExampleTracker_WaitAll() {
	fetcher := scripted{
		1: {sitefactory.TaskStateSuccess},
		2: {sitefactory.TaskStateProcessing},
	}

	tr, err := tracker.New(fetcher)
	if err != nil {
		fmt.Println(err)
		return
	}

	outcomes, err := tr.WaitAll(context.Background(),
		[]tracker.Task{tracker.NewTask(1), tracker.NewTask(2)}, 3, 0, nil)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, id := range []int64{1, 2} {
		fmt.Println(id, outcomes[id].Result, outcomes[id].Attempts)
	}
	// Output:
	// 1 succeeded 1
	// 2 timed_out 3
}
