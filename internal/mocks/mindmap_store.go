package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// MockMindMapStore is an in-memory store.MindMapStore.
type MockMindMapStore struct {
	CreateFn func(ctx context.Context, m *domain.MindMap) error
	UpdateFn func(ctx context.Context, m *domain.MindMap) error

	mu   sync.Mutex
	maps map[uuid.UUID]*domain.MindMap
}

// NewMockMindMapStore returns an empty store.
func NewMockMindMapStore() *MockMindMapStore {
	return &MockMindMapStore{maps: make(map[uuid.UUID]*domain.MindMap)}
}

// Len returns the number of stored maps.
func (s *MockMindMapStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.maps)
}

// Create implements store.MindMapStore.
func (s *MockMindMapStore) Create(ctx context.Context, m *domain.MindMap) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, exists := s.maps[m.ID]; exists {
		return store.ErrDuplicate
	}
	c := *m
	s.maps[m.ID] = &c
	return nil
}

// Get implements store.MindMapStore.
func (s *MockMindMapStore) Get(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[id]
	if !ok || m.UserID != userID {
		return nil, store.ErrMindMapNotFound
	}
	c := *m
	return &c, nil
}

// GetReadable implements store.MindMapStore.
func (s *MockMindMapStore) GetReadable(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[id]
	if !ok || (m.UserID != userID && !m.IsPublic) {
		return nil, store.ErrMindMapNotFound
	}
	c := *m
	return &c, nil
}

// ListByOwner implements store.MindMapStore.
func (s *MockMindMapStore) ListByOwner(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.MindMap, error) {
	return s.filter(skip, limit, func(m *domain.MindMap) bool { return m.UserID == userID }), nil
}

// Update implements store.MindMapStore.
func (s *MockMindMapStore) Update(ctx context.Context, m *domain.MindMap) error {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.maps[m.ID]
	if !ok || existing.UserID != m.UserID {
		return store.ErrMindMapNotFound
	}
	m.Version = existing.Version + 1
	m.UpdatedAt = time.Now().UTC()
	c := *m
	s.maps[m.ID] = &c
	return nil
}

// Delete implements store.MindMapStore.
func (s *MockMindMapStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[id]
	if !ok || m.UserID != userID {
		return store.ErrMindMapNotFound
	}
	delete(s.maps, id)
	return nil
}

// SearchPublic implements store.MindMapStore.
func (s *MockMindMapStore) SearchPublic(ctx context.Context, query string, skip, limit int) ([]*domain.MindMap, error) {
	q := strings.ToLower(query)
	return s.filter(skip, limit, func(m *domain.MindMap) bool {
		return m.IsPublic && (strings.Contains(strings.ToLower(m.Title), q) ||
			strings.Contains(strings.ToLower(m.Description), q))
	}), nil
}

// CountByOwner implements store.MindMapStore.
func (s *MockMindMapStore) CountByOwner(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.maps {
		if m.UserID == userID && !m.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// LastActivity implements store.MindMapStore.
func (s *MockMindMapStore) LastActivity(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *time.Time
	for _, m := range s.maps {
		if m.UserID != userID {
			continue
		}
		if last == nil || m.UpdatedAt.After(*last) {
			t := m.UpdatedAt
			last = &t
		}
	}
	return last, nil
}

// WithTx implements store.MindMapStore.
func (s *MockMindMapStore) WithTx(tx *sql.Tx) store.MindMapStore {
	return s
}

func (s *MockMindMapStore) filter(skip, limit int, keep func(*domain.MindMap) bool) []*domain.MindMap {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.MindMap{}
	for _, m := range s.maps {
		if keep(m) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip >= len(out) {
		return []*domain.MindMap{}
	}
	out = out[skip:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
