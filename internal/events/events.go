package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
)

// TaskEventType names a task lifecycle transition.
type TaskEventType string

// Lifecycle transitions.
const (
	TaskCreated   TaskEventType = "task.created"
	TaskStarted   TaskEventType = "task.started"
	TaskProgress  TaskEventType = "task.progress"
	TaskCompleted TaskEventType = "task.completed"
	TaskFailed    TaskEventType = "task.failed"
	TaskStopped   TaskEventType = "task.stopped"
	TaskRestarted TaskEventType = "task.restarted"
	TaskDeleted   TaskEventType = "task.deleted"
)

// TaskEvent describes one transition of one task.
type TaskEvent struct {
	ID         uuid.UUID         `json:"id"`
	Type       TaskEventType     `json:"type"`
	TaskID     uuid.UUID         `json:"task_id"`
	OwnerID    uuid.UUID         `json:"owner_id"`
	Kind       domain.TaskKind   `json:"kind"`
	Status     domain.TaskStatus `json:"status"`
	Progress   int               `json:"progress"`
	Message    string            `json:"message,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewTaskEvent snapshots task into an event of the given type.
func NewTaskEvent(eventType TaskEventType, task *domain.Task, message string) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     task.ID,
		OwnerID:    task.OwnerID,
		Kind:       task.Kind,
		Status:     task.Status,
		Progress:   task.Progress,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler processes task events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter publishes task events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
