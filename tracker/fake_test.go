package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/lexfrei/go-acsf/api/sitefactory"
)

// step is one scripted reply of fakeFetcher.
type step struct {
	status string
	err    error
}

// fakeFetcher replays a script per task ID. The last step repeats once the script runs out.
type fakeFetcher struct {
	mu       sync.Mutex
	scripts  map[int64][]step
	calls    map[int64]int
	order    []int64
	returned map[int64][]*sitefactory.TaskStatus

	// delay and inFlight are used to observe request parallelism.
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func newFakeFetcher(scripts map[int64][]step) *fakeFetcher {
	return &fakeFetcher{
		scripts:  scripts,
		calls:    make(map[int64]int),
		returned: make(map[int64][]*sitefactory.TaskStatus),
	}
}

func (f *fakeFetcher) GetTaskStatus(_ context.Context, taskID int64) (*sitefactory.TaskStatus, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)

	script := f.scripts[taskID]
	n := f.calls[taskID]
	f.calls[taskID]++
	f.order = append(f.order, taskID)
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if len(script) == 0 {
		return nil, nil
	}
	s := script[min(n, len(script)-1)]
	if s.err != nil {
		return nil, s.err
	}

	status := newStatus(taskID, s.status)
	f.returned[taskID] = append(f.returned[taskID], status)
	return status, nil
}

func (f *fakeFetcher) callsFor(taskID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[taskID]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func newStatus(taskID int64, s string) *sitefactory.TaskStatus {
	return &sitefactory.TaskStatus{
		TaskID:       taskID,
		State:        sitefactory.ParseTaskState(s),
		StatusString: s,
	}
}

// repeat returns n steps with the same status.
func repeat(status string, n int) []step {
	steps := make([]step, n)
	for i := range steps {
		steps[i] = step{status: status}
	}
	return steps
}

// recordingSleeper records requested pauses without sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

// progressLog records every ProgressFunc call.
type progressLog struct {
	mu      sync.Mutex
	ids     []int64
	seen    []*sitefactory.TaskStatus
	failOn  int
	failErr error
}

func (p *progressLog) record(task Task, status *sitefactory.TaskStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ids = append(p.ids, task.ID)
	p.seen = append(p.seen, status)
	if p.failOn > 0 && len(p.ids) == p.failOn {
		return p.failErr
	}
	return nil
}

// taskMetrics counts tracker metrics.
type taskMetrics struct {
	mu       sync.Mutex
	polls    map[string]int
	outcomes map[string]int
	errors   int
}

func newTaskMetrics() *taskMetrics {
	return &taskMetrics{polls: make(map[string]int), outcomes: make(map[string]int)}
}

func (m *taskMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *taskMetrics) RecordRetry(int, string)                              {}
func (m *taskMetrics) RecordRateLimit(string, time.Duration)                {}

func (m *taskMetrics) RecordError(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *taskMetrics) RecordTaskPoll(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[state]++
}

func (m *taskMetrics) RecordTaskOutcome(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}
