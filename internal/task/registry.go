package task

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadyRegistered is returned when a task id already has a live handle.
var ErrAlreadyRegistered = errors.New("task already registered")

// Handle connects a running task to whoever wants to stop it. The cancel
// channel is closed when a stop is requested; the done channel is closed once
// the run has written its final state and deregistered.
type Handle struct {
	cancel     chan struct{}
	done       chan struct{}
	cancelOnce sync.Once
	doneOnce   sync.Once
}

// NewHandle returns a handle with neither channel closed.
func NewHandle() *Handle {
	return &Handle{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Cancel requests a cooperative stop. Safe to call more than once.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() { close(h.cancel) })
}

// Cancelled reports whether a stop has been requested.
func (h *Handle) Cancelled() bool {
	select {
	case <-h.cancel:
		return true
	default:
		return false
	}
}

// Done is closed when the run has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) finish() {
	h.doneOnce.Do(func() { close(h.done) })
}

// Registry maps task ids to the handles of runs executing in this process.
// Nothing in it survives a restart.
type Registry struct {
	mu      sync.Mutex
	handles map[uuid.UUID]*Handle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[uuid.UUID]*Handle)}
}

// Register records h as the live handle of id.
func (r *Registry) Register(id uuid.UUID, h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[id]; exists {
		return ErrAlreadyRegistered
	}
	r.handles[id] = h
	return nil
}

// Cancel signals the run for id and waits until it has exited or ctx ends.
// It returns false when no run is registered for id.
func (r *Registry) Cancel(ctx context.Context, id uuid.UUID) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()
	if !ok {
		return false
	}

	h.Cancel()
	select {
	case <-h.Done():
	case <-ctx.Done():
	}
	return true
}

// CancelAll signals every registered run without waiting.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.handles {
		h.Cancel()
	}
	return len(r.handles)
}

// Deregister removes id and releases anyone waiting in Cancel. Unknown ids
// are ignored.
func (r *Registry) Deregister(id uuid.UUID) {
	r.mu.Lock()
	h, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()

	if ok {
		h.finish()
	}
}

// IsRunning reports whether id has a live handle.
func (r *Registry) IsRunning(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[id]
	return ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
