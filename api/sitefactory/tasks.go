package sitefactory

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/internal/response"
)

// API paths, written as OpenAPI templates.
const (
	pathPing            = "/api/v1/ping"
	pathTaskStatus      = "/api/v1/wip/task/{task_id}/status"
	pathTasks           = "/api/v1/tasks"
	pathTask            = "/api/v1/tasks/{task_id}"
	pathTaskLogs        = "/api/v1/tasks/{task_id}/logs"
	pathTaskPause       = "/api/v1/pause/{task_id}"
	pathSites           = "/api/v1/sites"
	pathSite            = "/api/v1/sites/{site_id}"
	pathSiteBackup      = "/api/v1/sites/{site_id}/backup"
	pathSiteBackups     = "/api/v1/sites/{site_id}/backups"
	pathCollection      = "/api/v1/collections/{collection_id}"
	pathCollectionAdd   = "/api/v1/collections/{collection_id}/add"
	pathCollectionDel   = "/api/v1/collections/{collection_id}/remove"
	pathCollectionPrime = "/api/v1/collections/{collection_id}/set-primary"
	pathVCS             = "/api/v1/vcs"
	pathUpdate          = "/api/v1/update"
)

// TaskState is the normalized state of a long-running task.
// The server's vocabulary is open-ended; anything unrecognized maps to TaskStateUnknown.
type TaskState string

const (
	TaskStateWaiting    TaskState = "waiting"
	TaskStateProcessing TaskState = "processing"
	TaskStatePaused     TaskState = "paused"
	TaskStateSuccess    TaskState = "success"
	TaskStateError      TaskState = "error"
	TaskStateCanceled   TaskState = "canceled"
	TaskStateUnknown    TaskState = "unknown"
)

// IsTerminal reports whether no further transitions can happen from s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateSuccess, TaskStateError, TaskStateCanceled:
		return true
	default:
		return false
	}
}

var taskStateAliases = map[string]TaskState{
	"waiting":     TaskStateWaiting,
	"not started": TaskStateWaiting,
	"added":       TaskStateWaiting,
	"queued":      TaskStateWaiting,
	"processing":  TaskStateProcessing,
	"in progress": TaskStateProcessing,
	"started":     TaskStateProcessing,
	"running":     TaskStateProcessing,
	"restarted":   TaskStateProcessing,
	"paused":      TaskStatePaused,
	"completed":   TaskStateSuccess,
	"complete":    TaskStateSuccess,
	"success":     TaskStateSuccess,
	"succeeded":   TaskStateSuccess,
	"done":        TaskStateSuccess,
	"error":       TaskStateError,
	"failed":      TaskStateError,
	"failure":     TaskStateError,
	"canceled":    TaskStateCanceled,
	"cancelled":   TaskStateCanceled,
	"killed":      TaskStateCanceled,
	"terminated":  TaskStateCanceled,
	"aborted":     TaskStateCanceled,
}

// ParseTaskState maps a server status string to a TaskState, case-insensitively.
func ParseTaskState(s string) TaskState {
	if state, ok := taskStateAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return state
	}
	return TaskStateUnknown
}

// TaskStatus is one snapshot of a task, as returned by GetTaskStatus.
// It is never cached: every call is a fresh round trip.
type TaskStatus struct {
	TaskID int64
	State  TaskState
	// StatusString is the server's human-readable status. For payloads without
	// one it holds a best-effort description instead.
	StatusString string
	// Code is the raw numeric WIP status, 0 if absent.
	Code         int64
	Name         string
	Group        string
	ErrorMessage string
	Added        int64
	Started      int64
	Completed    int64
	// Raw is the full response body.
	Raw json.RawMessage
}

// IsTerminal reports whether the task has finished, successfully or not.
func (s *TaskStatus) IsTerminal() bool {
	return s != nil && s.State.IsTerminal()
}

// wipTask holds the raw fields of a wip_task object. Fields are decoded one by
// one so an odd value in one of them cannot hide the status.
type wipTask map[string]json.RawMessage

func (w wipTask) number(key string) int64 {
	var v FlexInt
	if raw, ok := w[key]; ok && json.Unmarshal(raw, &v) == nil {
		return int64(v)
	}
	return 0
}

func (w wipTask) text(key string) string {
	var v string
	if raw, ok := w[key]; ok && json.Unmarshal(raw, &v) == nil {
		return v
	}
	return ""
}

type taskStatusEnvelope struct {
	WipTask wipTask `json:"wip_task"`
}

// parseTaskStatus never fails: a payload it cannot understand yields TaskStateUnknown.
func parseTaskStatus(taskID int64, body []byte) *TaskStatus {
	status := &TaskStatus{
		TaskID: taskID,
		State:  TaskStateUnknown,
		Raw:    json.RawMessage(append([]byte(nil), body...)),
	}

	var envelope taskStatusEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.WipTask == nil {
		status.StatusString = "unknown (unrecognized payload: " + summarize(body) + ")"
		return status
	}

	task := envelope.WipTask
	if id := task.number("id"); id > 0 {
		status.TaskID = id
	}
	status.Code = task.number("status")
	status.Name = task.text("name")
	status.Group = task.text("group")
	status.ErrorMessage = task.text("error_message")
	status.Added = task.number("added")
	status.Started = task.number("started")
	status.Completed = task.number("completed")

	switch text := task.text("status_string"); {
	case text != "":
		status.StatusString = text
		status.State = ParseTaskState(text)
	case status.Code != 0:
		status.StatusString = "unknown (code " + strconv.FormatInt(status.Code, 10) + ")"
	default:
		status.StatusString = "unknown"
	}

	return status
}

const summaryLimit = 120

func summarize(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if s == "" {
		return "empty body"
	}
	if runes := []rune(s); len(runes) > summaryLimit {
		return string(runes[:summaryLimit]) + "..."
	}
	return s
}

// GetTaskStatus fetches the current status of a task with a single request.
// A missing task yields an error matching ErrNotFound; a malformed payload
// yields a TaskStatus in TaskStateUnknown rather than an error.
func (c *Client) GetTaskStatus(ctx context.Context, taskID int64) (*TaskStatus, error) {
	if err := checkID("task", taskID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathTaskStatus,
		params: []pathParam{{name: "task_id", value: taskID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get status of task %d", taskID)
	}

	return parseTaskStatus(taskID, body), nil
}

// Task is an entry of the task list.
type Task struct {
	ID           FlexInt `json:"id"`
	Parent       FlexInt `json:"parent"`
	Name         string  `json:"name"`
	Group        string  `json:"group"`
	Class        string  `json:"class"`
	Status       FlexInt `json:"status"`
	StatusString string  `json:"status_string"`
	Added        FlexInt `json:"added"`
	Started      FlexInt `json:"started"`
	Completed    FlexInt `json:"completed"`
	ErrorMessage string  `json:"error_message"`
	NID          FlexInt `json:"nid"`
	UID          FlexInt `json:"uid"`
}

// State returns the normalized state of the listed task.
func (t Task) State() TaskState {
	return ParseTaskState(t.StatusString)
}

// ListTasksParams filters the task list.
type ListTasksParams struct {
	ListParams
	// Status is a server-side filter such as "processing" or "error".
	Status string
	Group  string
	Class  string
}

// ListTasks lists tasks known to the factory.
func (c *Client) ListTasks(ctx context.Context, params *ListTasksParams) ([]Task, error) {
	if params == nil {
		params = &ListTasksParams{}
	}

	query, err := newQuery().
		add("limit", params.Limit, params.Limit > 0).
		add("page", params.Page, params.Page > 0).
		add("status", params.Status, params.Status != "").
		add("group", params.Group, params.Group != "").
		add("class", params.Class, params.Class != "").
		build()
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{method: http.MethodGet, path: pathTasks, query: query})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}

	tasks, err := response.Unmarshal[[]Task](body, "failed to decode task list")
	if err != nil {
		//nolint:wrapcheck // response.Unmarshal wraps errors internally
		return nil, err
	}
	return *tasks, nil
}

// TaskLogEntry is a single log line of a task.
type TaskLogEntry struct {
	ID        FlexInt `json:"id"`
	Timestamp FlexInt `json:"timestamp"`
	Level     string  `json:"level"`
	Message   string  `json:"message"`
}

// GetTaskLogs returns the log of a task.
func (c *Client) GetTaskLogs(ctx context.Context, taskID int64) ([]TaskLogEntry, error) {
	if err := checkID("task", taskID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathTaskLogs,
		params: []pathParam{{name: "task_id", value: taskID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get logs of task %d", taskID)
	}

	entries, err := response.Unmarshal[[]TaskLogEntry](body, "failed to decode task logs")
	if err != nil {
		//nolint:wrapcheck // response.Unmarshal wraps errors internally
		return nil, err
	}
	return *entries, nil
}

// PauseTask pauses or resumes a task and its children.
func (c *Client) PauseTask(ctx context.Context, taskID int64, paused bool) (*MessageResponse, error) {
	if err := checkID("task", taskID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathTaskPause,
		params: []pathParam{{name: "task_id", value: taskID}},
		body: map[string]any{
			"paused": paused,
			"level":  "family",
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to set paused=%t on task %d", paused, taskID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[MessageResponse](body, "failed to decode pause response")
}

// TerminateTask asks the factory to stop a task. The task reaches a terminal
// state asynchronously; poll GetTaskStatus to observe it.
func (c *Client) TerminateTask(ctx context.Context, taskID int64) (*MessageResponse, error) {
	if err := checkID("task", taskID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   pathTask,
		params: []pathParam{{name: "task_id", value: taskID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to terminate task %d", taskID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[MessageResponse](body, "failed to decode terminate response")
}
