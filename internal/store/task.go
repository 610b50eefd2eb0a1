package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
)

// TaskStore defines the interface for task persistence. Logically deleted
// tasks are invisible to every read.
type TaskStore interface {
	// Create inserts task and sets its ID and timestamps from the row.
	Create(ctx context.Context, task *domain.Task) error

	// Get returns ErrTaskNotFound when the task is missing, deleted, or
	// owned by someone else.
	Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// GetByID is Get without the ownership check, for the task engine.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns at most limit tasks for the owner, newest first.
	List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error)

	// UpdateProgress records a non-terminal status and progress.
	UpdateProgress(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int) error

	// Finish writes a terminal outcome. completed_at is stamped only the
	// first time a task reaches a terminal status.
	Finish(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) error

	// FinishIfActive writes outcome only if the task is still pending or
	// running, and reports whether it did.
	FinishIfActive(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) (bool, error)

	// MarkDeleted logically deletes a non-active task owned by ownerID and
	// reports whether a row changed.
	MarkDeleted(ctx context.Context, id, ownerID uuid.UUID) (bool, error)

	// ReplaceStopped logically deletes the stopped, restartable task id and
	// inserts replacement in the same transaction. Returns ErrConflict when
	// the original is no longer eligible.
	ReplaceStopped(ctx context.Context, id, ownerID uuid.UUID, replacement *domain.Task) error

	// ListActive returns pending or running tasks last updated before
	// olderThan. A zero olderThan matches every active task.
	ListActive(ctx context.Context, olderThan time.Time) ([]*domain.Task, error)

	WithTx(tx *sql.Tx) TaskStore
}
