package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusRunning    TaskStatus = "running"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusStopped    TaskStatus = "stopped"
	TaskStatusRestarting TaskStatus = "restarting"
)

// StoppedByUserMessage is recorded as error_message when a task is stopped.
const StoppedByUserMessage = "stopped by user"

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusStopped, TaskStatusRestarting:
		return true
	}
	return false
}

// IsTerminal reports whether no further execution can happen in this status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusStopped
}

// IsActive reports whether the task is pending or running.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusPending || s == TaskStatusRunning
}

// Task is a trackable unit of asynchronous work. Its Input and Result are
// tagged by Kind.
type Task struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Kind          TaskKind   `json:"kind"`
	Status        TaskStatus `json:"status"`
	Progress      int        `json:"progress"`
	Input         TaskInput  `json:"input_data"`
	Result        TaskResult `json:"result,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	IsStoppable   bool       `json:"is_stoppable"`
	IsRestartable bool       `json:"is_restartable"`
	Deleted       bool       `json:"deleted"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// TaskOption customizes a task built by NewTask.
type TaskOption func(*Task)

// WithDisplay overrides the derived title and description. Empty values keep
// the derived ones.
func WithDisplay(title, description string) TaskOption {
	return func(t *Task) {
		if title != "" {
			t.Title = title
		}
		if description != "" {
			t.Description = description
		}
	}
}

// NewTask validates input and builds a pending task owned by ownerID. The id
// is left empty; the store assigns it.
func NewTask(ownerID uuid.UUID, input TaskInput, opts ...TaskOption) (*Task, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner id cannot be empty", ErrValidation)
	}
	if input == nil {
		return nil, fmt.Errorf("%w: missing input", ErrInvalidInput)
	}
	if err := PrepareInput(input); err != nil {
		return nil, err
	}

	title, description := input.describe()
	t := &Task{
		OwnerID:       ownerID,
		Kind:          input.Kind(),
		Status:        TaskStatusPending,
		Input:         input,
		Title:         title,
		Description:   description,
		IsStoppable:   true,
		IsRestartable: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// CloneForRestart returns a fresh pending task carrying the kind, input,
// display metadata and capability flags of t. Result, progress and error
// state are not copied.
func (t *Task) CloneForRestart() *Task {
	return &Task{
		OwnerID:       t.OwnerID,
		Kind:          t.Kind,
		Status:        TaskStatusPending,
		Input:         t.Input,
		Title:         t.Title,
		Description:   t.Description,
		IsStoppable:   t.IsStoppable,
		IsRestartable: t.IsRestartable,
	}
}

// UnmarshalJSON rebuilds the typed input and result from their kind tag.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		Input  json.RawMessage `json:"input_data"`
		Result json.RawMessage `json:"result,omitempty"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	input, err := DecodeTaskInput(t.Kind, aux.Input)
	if err != nil {
		return err
	}
	t.Input = input

	result, err := DecodeTaskResult(t.Kind, aux.Result)
	if err != nil {
		return err
	}
	t.Result = result
	return nil
}

// TaskOutcome is the terminal state an execution unit reports.
type TaskOutcome struct {
	Status       TaskStatus
	Progress     int
	Result       TaskResult
	ErrorMessage string
}

// CompletedOutcome reports success; progress is forced to 100.
func CompletedOutcome(result TaskResult) TaskOutcome {
	return TaskOutcome{Status: TaskStatusCompleted, Progress: 100, Result: result}
}

// FailedOutcome reports failure; progress resets to 0 and no result is kept.
func FailedOutcome(message string) TaskOutcome {
	return TaskOutcome{Status: TaskStatusFailed, Progress: 0, ErrorMessage: message}
}

// StoppedOutcome reports a user stop; progress stays at the last checkpoint.
func StoppedOutcome(progress int) TaskOutcome {
	return TaskOutcome{Status: TaskStatusStopped, Progress: progress, ErrorMessage: StoppedByUserMessage}
}
