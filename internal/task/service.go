package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/config"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/events"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// ErrShuttingDown is returned when work is submitted after Shutdown.
var ErrShuttingDown = errors.New("task service is shutting down")

// Service is the entry point for creating and controlling tasks. Every
// lookup is scoped to the owner; a task owned by someone else is reported
// as store.ErrTaskNotFound.
type Service struct {
	tasks    store.TaskStore
	registry *Registry
	executor *Executor
	events   events.EventEmitter
	cfg      config.TaskConfig
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService wires a Service. The registry must be the one the executor
// deregisters from.
func NewService(
	tasks store.TaskStore,
	registry *Registry,
	executor *Executor,
	emitter events.EventEmitter,
	cfg config.TaskConfig,
	logger *slog.Logger,
) (*Service, error) {
	switch {
	case tasks == nil:
		return nil, fmt.Errorf("task store cannot be nil")
	case registry == nil:
		return nil, fmt.Errorf("registry cannot be nil")
	case executor == nil:
		return nil, fmt.Errorf("executor cannot be nil")
	case emitter == nil:
		return nil, fmt.Errorf("event emitter cannot be nil")
	case logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Service{
		tasks:    tasks,
		registry: registry,
		executor: executor,
		events:   emitter,
		cfg:      cfg,
		logger:   logger.With("component", "task_service"),
	}, nil
}

// Create persists a pending task for input and starts it in the background.
// It returns as soon as the task is running; it never waits for a result.
func (s *Service) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	input domain.TaskInput,
	opts ...domain.TaskOption,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := domain.NewTask(ownerID, input, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.emit(ctx, events.TaskCreated, t, "")

	if err := s.spawn(ctx, t); err != nil {
		s.abandon(ctx, t, err)
		return nil, err
	}

	log.Info("task created", "task_id", t.ID, "task_kind", t.Kind, "owner_id", ownerID)
	return t, nil
}

// Get returns the owner's task.
func (s *Service) Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	return s.tasks.Get(ctx, id, ownerID)
}

// List returns the owner's most recent tasks. A non-positive limit uses the
// configured default; larger limits are capped.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error) {
	switch {
	case limit <= 0:
		limit = s.cfg.DefaultListLimit
	case s.cfg.MaxListLimit > 0 && limit > s.cfg.MaxListLimit:
		limit = s.cfg.MaxListLimit
	}
	return s.tasks.List(ctx, ownerID, limit)
}

// Stop stops a pending or running task. When this process runs the task the
// call waits for the run to write its stopped state. Otherwise the stored
// status is overwritten directly.
func (s *Service) Stop(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", id)

	t, err := s.tasks.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !t.Status.IsActive() {
		return domain.ErrTaskFinished
	}
	if !t.IsStoppable {
		return domain.ErrTaskNotStoppable
	}

	if s.registry.Cancel(ctx, id) {
		log.Info("task stop delivered")
		return nil
	}

	stopped, err := s.tasks.FinishIfActive(ctx, id, domain.StoppedOutcome(t.Progress))
	if err != nil {
		return fmt.Errorf("failed to stop task: %w", err)
	}
	if !stopped {
		return domain.ErrTaskFinished
	}

	t.Status = domain.TaskStatusStopped
	t.ErrorMessage = domain.StoppedByUserMessage
	s.emit(ctx, events.TaskStopped, t, domain.StoppedByUserMessage)
	log.Info("task had no live run, marked stopped")
	return nil
}

// Restart replaces a stopped task with a fresh copy and starts it. The
// original is logically deleted and otherwise left as it was.
func (s *Service) Restart(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", id)

	original, err := s.tasks.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.TaskStatusStopped || !original.IsRestartable {
		return nil, domain.ErrTaskNotRestartable
	}

	replacement := original.CloneForRestart()
	if err := s.tasks.ReplaceStopped(ctx, id, ownerID, replacement); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.ErrTaskNotRestartable
		}
		return nil, fmt.Errorf("failed to restart task: %w", err)
	}

	original.Deleted = true
	s.emit(ctx, events.TaskRestarted, original, "replaced by "+replacement.ID.String())
	s.emit(ctx, events.TaskCreated, replacement, "")

	if err := s.spawn(ctx, replacement); err != nil {
		s.abandon(ctx, replacement, err)
		return nil, err
	}

	log.Info("task restarted", "new_task_id", replacement.ID)
	return replacement, nil
}

// Delete logically deletes a task that is no longer pending or running.
func (s *Service) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	t, err := s.tasks.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if t.Status.IsActive() {
		return domain.ErrTaskActive
	}

	deleted, err := s.tasks.MarkDeleted(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return store.ErrTaskNotFound
	}

	t.Deleted = true
	s.emit(ctx, events.TaskDeleted, t, "")
	return nil
}

// Shutdown refuses new work, asks every live run to stop and waits for them
// to exit or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if n := s.registry.CancelAll(); n > 0 {
		s.logger.Info("stopping live tasks", "count", n)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for tasks to stop: %w", ctx.Err())
	}
}

// spawn registers t before starting its goroutine, so a stop issued right
// after Create always finds the handle.
func (s *Service) spawn(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrShuttingDown
	}
	h := NewHandle()
	if err := s.registry.Register(t.ID, h); err != nil {
		return err
	}

	// The run mutates its own copy; the caller keeps t.
	owned := *t
	s.wg.Add(1)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		s.executor.Run(runCtx, &owned, h)
	}()
	return nil
}

// abandon fails a task that was persisted but could not be started.
func (s *Service) abandon(ctx context.Context, t *domain.Task, cause error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", t.ID)
	if _, err := s.tasks.FinishIfActive(ctx, t.ID, domain.FailedOutcome(cause.Error())); err != nil {
		log.Error("failed to mark unstarted task as failed", "error", err)
		return
	}
	t.Status = domain.TaskStatusFailed
	t.ErrorMessage = cause.Error()
	s.emit(ctx, events.TaskFailed, t, cause.Error())
}

func (s *Service) emit(ctx context.Context, eventType events.TaskEventType, t *domain.Task, message string) {
	if err := s.events.EmitEvent(ctx, events.NewTaskEvent(eventType, t, message)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit task event",
			"event_type", eventType,
			"task_id", t.ID,
			"error", err)
	}
}
