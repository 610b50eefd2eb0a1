package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/events"
	"github.com/phrazzld/mindmap-api/internal/generation"
	"github.com/phrazzld/mindmap-api/internal/mindmap"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/store"
)

var (
	// errStopped unwinds a run whose handle was cancelled at a checkpoint.
	errStopped = errors.New("task stopped")
	// errSuperseded unwinds a run whose record was finalized by someone else.
	errSuperseded = errors.New("task finalized elsewhere")
)

// ExecutorDeps groups the collaborators of an Executor.
type ExecutorDeps struct {
	Tasks     store.TaskStore
	MindMaps  store.MindMapStore
	Generator generation.Generator
	Builder   *mindmap.Builder
	Pool      *Pool
	Events    events.EventEmitter
	Registry  *Registry
}

// Executor drives one task through its checkpoints to a terminal state.
type Executor struct {
	tasks     store.TaskStore
	mindmaps  store.MindMapStore
	generator generation.Generator
	builder   *mindmap.Builder
	pool      *Pool
	events    events.EventEmitter
	registry  *Registry
	logger    *slog.Logger
}

// NewExecutor validates deps and returns an Executor.
func NewExecutor(deps ExecutorDeps, logger *slog.Logger) (*Executor, error) {
	switch {
	case deps.Tasks == nil:
		return nil, fmt.Errorf("task store cannot be nil")
	case deps.MindMaps == nil:
		return nil, fmt.Errorf("mind map store cannot be nil")
	case deps.Generator == nil:
		return nil, fmt.Errorf("generator cannot be nil")
	case deps.Builder == nil:
		return nil, fmt.Errorf("builder cannot be nil")
	case deps.Pool == nil:
		return nil, fmt.Errorf("pool cannot be nil")
	case deps.Events == nil:
		return nil, fmt.Errorf("event emitter cannot be nil")
	case deps.Registry == nil:
		return nil, fmt.Errorf("registry cannot be nil")
	case logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Executor{
		tasks:     deps.Tasks,
		mindmaps:  deps.MindMaps,
		generator: deps.Generator,
		builder:   deps.Builder,
		pool:      deps.Pool,
		events:    deps.Events,
		registry:  deps.Registry,
		logger:    logger.With("component", "task_executor"),
	}, nil
}

// run is the state of one execution attempt.
type run struct {
	e      *Executor
	task   *domain.Task
	handle *Handle
	log    *slog.Logger
}

// Run executes t until it completes, fails or observes a stop on h. The
// registry entry for t is removed on every exit path, after the final state
// has been written.
func (e *Executor) Run(ctx context.Context, t *domain.Task, h *Handle) {
	defer e.registry.Deregister(t.ID)

	r := &run{
		e:      e,
		task:   t,
		handle: h,
		log: logger.FromContextOrDefault(ctx, e.logger).With(
			"task_id", t.ID,
			"task_kind", t.Kind,
		),
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("task panicked", "panic", p)
			r.finish(ctx, domain.FailedOutcome(fmt.Sprintf("internal error: %v", p)))
		}
	}()

	result, err := r.execute(ctx)
	switch {
	case errors.Is(err, errStopped):
		r.finish(ctx, domain.StoppedOutcome(r.task.Progress))
	case errors.Is(err, errSuperseded):
		r.log.Info("task was finalized elsewhere, abandoning run")
	case err != nil:
		r.finish(ctx, domain.FailedOutcome(err.Error()))
	default:
		r.finish(ctx, domain.CompletedOutcome(result))
	}
}

func (r *run) execute(ctx context.Context) (domain.TaskResult, error) {
	switch in := r.task.Input.(type) {
	case *domain.GenerateMindMapInput:
		return r.generateMindMap(ctx, in)
	case *domain.ExpandNodeInput:
		return r.expandNode(ctx, in)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTaskKind, r.task.Kind)
	}
}

// checkpoint is the only place a stop request is observed. It persists
// progress and moves a pending task to running.
func (r *run) checkpoint(ctx context.Context, progress int) error {
	if r.handle.Cancelled() {
		return errStopped
	}

	err := r.e.tasks.UpdateProgress(ctx, r.task.ID, domain.TaskStatusRunning, progress)
	if errors.Is(err, store.ErrConflict) {
		return errSuperseded
	}
	if err != nil {
		return fmt.Errorf("record progress: %w", err)
	}

	eventType := events.TaskProgress
	if r.task.Status == domain.TaskStatusPending {
		eventType = events.TaskStarted
	}
	r.task.Status = domain.TaskStatusRunning
	r.task.Progress = progress
	r.emit(ctx, eventType, "")
	return nil
}

func (r *run) generateMindMap(ctx context.Context, in *domain.GenerateMindMapInput) (domain.TaskResult, error) {
	if err := r.checkpoint(ctx, 10); err != nil {
		return nil, err
	}
	req := generation.MindMapRequest{
		Topic:       in.Topic,
		Description: in.Description,
		Depth:       in.Depth,
		Style:       in.Style,
	}
	if err := r.checkpoint(ctx, 30); err != nil {
		return nil, err
	}
	if err := r.checkpoint(ctx, 50); err != nil {
		return nil, err
	}

	var tree *generation.MindMapTree
	callErr := r.e.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		tree, err = r.e.generator.GenerateMindMap(ctx, req)
		return err
	})

	var graph mindmap.Graph
	fallback := false
	if callErr != nil || tree == nil {
		r.log.Warn("mind map generation failed, using placeholder", "error", callErr)
		graph = r.e.builder.Placeholder(in.Topic)
		fallback = true
	} else {
		graph = r.e.builder.FromTree(tree, in.Topic)
	}

	if err := r.checkpoint(ctx, 70); err != nil {
		return nil, err
	}

	m, err := domain.NewMindMap(r.task.OwnerID, in.Topic, in.Description, graph.Nodes, graph.Edges)
	if err != nil {
		return nil, fmt.Errorf("build mind map: %w", err)
	}
	if err := r.e.mindmaps.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("save mind map: %w", err)
	}

	if err := r.checkpoint(ctx, 90); err != nil {
		return nil, err
	}

	return &domain.GenerateMindMapResult{
		MindMapID:   m.ID,
		Title:       m.Title,
		Description: m.Description,
		Nodes:       m.Nodes,
		Edges:       m.Edges,
		Fallback:    fallback,
	}, nil
}

func (r *run) expandNode(ctx context.Context, in *domain.ExpandNodeInput) (domain.TaskResult, error) {
	if err := r.checkpoint(ctx, 10); err != nil {
		return nil, err
	}
	req := in.Request
	parent, ok := domain.FindNode(in.CurrentNodes, req.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, req.NodeID)
	}

	if err := r.checkpoint(ctx, 30); err != nil {
		return nil, err
	}
	genReq := generation.ExpansionRequest{
		NodeLabel:      parent.Data.Label,
		ExpansionTopic: req.ExpansionTopic,
		Context:        req.Context,
		Ancestors:      mindmap.Ancestors(in.CurrentNodes, req.NodeID),
		MaxChildren:    req.MaxChildren,
		Nested:         req.Nested,
	}
	if err := r.checkpoint(ctx, 50); err != nil {
		return nil, err
	}

	var exp *generation.Expansion
	callErr := r.e.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		exp, err = r.e.generator.ExpandNode(ctx, genReq)
		return err
	})
	if callErr != nil {
		r.log.Warn("node expansion failed, returning no children", "error", callErr)
		exp = nil
	}

	if err := r.checkpoint(ctx, 70); err != nil {
		return nil, err
	}
	graph := r.e.builder.Expand(parent, exp, req.MaxChildren)

	if err := r.checkpoint(ctx, 90); err != nil {
		return nil, err
	}
	return &domain.ExpandNodeResult{NewNodes: graph.Nodes, NewEdges: graph.Edges}, nil
}

func (r *run) finish(ctx context.Context, outcome domain.TaskOutcome) {
	if err := r.e.tasks.Finish(ctx, r.task.ID, outcome); err != nil {
		r.log.Error("failed to record task outcome",
			"status", outcome.Status,
			"error", err)
		return
	}

	r.task.Status = outcome.Status
	r.task.Progress = outcome.Progress
	r.task.Result = outcome.Result
	r.task.ErrorMessage = outcome.ErrorMessage

	var eventType events.TaskEventType
	switch outcome.Status {
	case domain.TaskStatusCompleted:
		eventType = events.TaskCompleted
		r.log.Info("task completed")
	case domain.TaskStatusStopped:
		eventType = events.TaskStopped
		r.log.Info("task stopped", "progress", outcome.Progress)
	default:
		eventType = events.TaskFailed
		r.log.Error("task failed", "error", outcome.ErrorMessage)
	}
	r.emit(ctx, eventType, outcome.ErrorMessage)
}

func (r *run) emit(ctx context.Context, eventType events.TaskEventType, message string) {
	if err := r.e.events.EmitEvent(ctx, events.NewTaskEvent(eventType, r.task, message)); err != nil {
		r.log.Warn("failed to emit task event", "event_type", eventType, "error", err)
	}
}
