package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore. Reads return copies so
// callers cannot mutate stored state.
type MockTaskStore struct {
	CreateFn         func(ctx context.Context, task *domain.Task) error
	UpdateProgressFn func(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int) error
	FinishFn         func(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) error
	ListActiveFn     func(ctx context.Context, olderThan time.Time) ([]*domain.Task, error)

	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
	// progress records every progress write per task, in order.
	progress map[uuid.UUID][]int
	now      func() time.Time
}

// NewMockTaskStore returns an empty store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks:    make(map[uuid.UUID]*domain.Task),
		progress: make(map[uuid.UUID][]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Put stores a copy of t as is, for seeding tests.
func (m *MockTaskStore) Put(t *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.tasks[t.ID] = &c
}

// Snapshot returns a copy of the stored task, including deleted ones.
func (m *MockTaskStore) Snapshot(id uuid.UUID) (*domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, false
	}
	c := *t
	return &c, true
}

// ProgressHistory returns the progress values written for id.
func (m *MockTaskStore) ProgressHistory(id uuid.UUID) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.progress[id]...)
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(task)
	return nil
}

func (m *MockTaskStore) insert(task *domain.Task) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := m.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	c := *task
	m.tasks[task.ID] = &c
}

// Get implements store.TaskStore.
func (m *MockTaskStore) Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Deleted || t.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	c := *t
	return &c, nil
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Deleted {
		return nil, store.ErrTaskNotFound
	}
	c := *t
	return &c, nil
}

// List implements store.TaskStore.
func (m *MockTaskStore) List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.Task{}
	for _, t := range m.tasks {
		if t.OwnerID == ownerID && !t.Deleted {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateProgress implements store.TaskStore. Like the SQL store it only
// touches active, non-deleted tasks and reports store.ErrConflict otherwise.
func (m *MockTaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int) error {
	if m.UpdateProgressFn != nil {
		return m.UpdateProgressFn(ctx, id, status, progress)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Deleted || !t.Status.IsActive() {
		return store.ErrConflict
	}
	t.Status = status
	t.Progress = progress
	t.UpdatedAt = m.now()
	m.progress[id] = append(m.progress[id], progress)
	return nil
}

// Finish implements store.TaskStore.
func (m *MockTaskStore) Finish(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) error {
	if m.FinishFn != nil {
		return m.FinishFn(ctx, id, outcome)
	}
	if !outcome.Status.IsTerminal() {
		return domain.ErrInvalidTaskStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	m.apply(t, outcome)
	return nil
}

// FinishIfActive implements store.TaskStore.
func (m *MockTaskStore) FinishIfActive(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) (bool, error) {
	if !outcome.Status.IsTerminal() {
		return false, domain.ErrInvalidTaskStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Deleted || !t.Status.IsActive() {
		return false, nil
	}
	m.apply(t, outcome)
	return true, nil
}

func (m *MockTaskStore) apply(t *domain.Task, outcome domain.TaskOutcome) {
	now := m.now()
	t.Status = outcome.Status
	t.Progress = outcome.Progress
	t.Result = outcome.Result
	t.ErrorMessage = outcome.ErrorMessage
	t.UpdatedAt = now
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
}

// MarkDeleted implements store.TaskStore.
func (m *MockTaskStore) MarkDeleted(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Deleted || t.OwnerID != ownerID || t.Status.IsActive() {
		return false, nil
	}
	t.Deleted = true
	t.UpdatedAt = m.now()
	return true, nil
}

// ReplaceStopped implements store.TaskStore.
func (m *MockTaskStore) ReplaceStopped(ctx context.Context, id, ownerID uuid.UUID, replacement *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Deleted || t.OwnerID != ownerID ||
		t.Status != domain.TaskStatusStopped || !t.IsRestartable {
		return store.ErrConflict
	}
	t.Deleted = true
	t.UpdatedAt = m.now()
	m.insert(replacement)
	return nil
}

// ListActive implements store.TaskStore.
func (m *MockTaskStore) ListActive(ctx context.Context, olderThan time.Time) ([]*domain.Task, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx, olderThan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.Task{}
	for _, t := range m.tasks {
		if t.Deleted || !t.Status.IsActive() {
			continue
		}
		if !olderThan.IsZero() && !t.UpdatedAt.Before(olderThan) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// WithTx implements store.TaskStore.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
