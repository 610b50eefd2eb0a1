package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/mindmap-api/internal/config"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/events"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// Failure messages written by the Reconciler.
const (
	InterruptedMessage = "interrupted by server restart"
	StuckMessage       = "task made no progress and was abandoned"
)

// Reconciler fails tasks whose stored status says active but which no run
// in this process owns.
type Reconciler struct {
	tasks    store.TaskStore
	registry *Registry
	events   events.EventEmitter
	stuckAge time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciler builds a Reconciler from the task settings.
func NewReconciler(
	tasks store.TaskStore,
	registry *Registry,
	emitter events.EventEmitter,
	cfg config.TaskConfig,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		tasks:    tasks,
		registry: registry,
		events:   emitter,
		stuckAge: time.Duration(cfg.StuckTaskAgeMinutes) * time.Minute,
		interval: time.Duration(cfg.StuckTaskCheckIntervalMinutes) * time.Minute,
		logger:   logger.With("component", "task_reconciler"),
		now:      time.Now,
	}
}

// Sweep fails every active task left behind by a previous process. It must
// run before the service accepts work.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	n, err := r.failOrphans(ctx, time.Time{}, InterruptedMessage)
	if err != nil {
		return n, fmt.Errorf("failed to sweep interrupted tasks: %w", err)
	}
	if n > 0 {
		r.logger.Info("failed interrupted tasks", "count", n)
	}
	return n, nil
}

// FailStuck fails active tasks not updated within the stuck age that have
// no live run.
func (r *Reconciler) FailStuck(ctx context.Context) (int, error) {
	n, err := r.failOrphans(ctx, r.now().Add(-r.stuckAge), StuckMessage)
	if err != nil {
		return n, fmt.Errorf("failed to check for stuck tasks: %w", err)
	}
	if n > 0 {
		r.logger.Info("failed stuck tasks", "count", n)
	}
	return n, nil
}

// Run calls FailStuck on every tick until ctx ends.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.FailStuck(ctx); err != nil {
				r.logger.Error("stuck task check failed", "error", err)
			}
		}
	}
}

func (r *Reconciler) failOrphans(ctx context.Context, olderThan time.Time, message string) (int, error) {
	active, err := r.tasks.ListActive(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, t := range active {
		if r.registry.IsRunning(t.ID) {
			continue
		}
		ok, err := r.tasks.FinishIfActive(ctx, t.ID, domain.FailedOutcome(message))
		if err != nil {
			r.logger.Error("failed to fail orphaned task", "task_id", t.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		failed++

		t.Status = domain.TaskStatusFailed
		t.Progress = 0
		t.ErrorMessage = message
		if err := r.events.EmitEvent(ctx, events.NewTaskEvent(events.TaskFailed, t, message)); err != nil {
			r.logger.Warn("failed to emit task event", "task_id", t.ID, "error", err)
		}
	}
	return failed, nil
}
