package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// CreateMindMapParams holds the fields of a hand-built mind map. Empty
// layout and theme take the defaults.
type CreateMindMapParams struct {
	Title       string
	Description string
	Nodes       []domain.Node
	Edges       []domain.Edge
	Layout      string
	Theme       string
	IsPublic    bool
}

// MindMapUpdate is a partial update. Nil fields are left alone.
type MindMapUpdate struct {
	Title       *string
	Description *string
	Nodes       []domain.Node
	Edges       []domain.Edge
	Layout      *string
	Theme       *string
	IsPublic    *bool
}

func (u MindMapUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Nodes == nil && u.Edges == nil &&
		u.Layout == nil && u.Theme == nil && u.IsPublic == nil
}

// UsageStats summarizes a user's mind-map activity.
type UsageStats struct {
	TotalMindMaps   int        `json:"total_mindmaps"`
	MonthlyMindMaps int        `json:"monthly_mindmaps"`
	UserSince       time.Time  `json:"user_since"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
}

// MindMapService manages stored mind-map documents.
type MindMapService interface {
	Create(ctx context.Context, userID uuid.UUID, params CreateMindMapParams) (*domain.MindMap, error)
	// Get returns a map the user owns or one that is public.
	Get(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error)
	List(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.MindMap, error)
	// Update applies a partial update to an owned map and bumps its version
	// when anything changed.
	Update(ctx context.Context, id, userID uuid.UUID, update MindMapUpdate) (*domain.MindMap, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	SearchPublic(ctx context.Context, query string, skip, limit int) ([]*domain.MindMap, error)
	UsageStats(ctx context.Context, userID uuid.UUID) (*UsageStats, error)
}

type mindMapServiceImpl struct {
	mindmaps store.MindMapStore
	users    store.UserStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewMindMapService creates a MindMapService.
func NewMindMapService(mindmaps store.MindMapStore, users store.UserStore, logger *slog.Logger) (MindMapService, error) {
	if mindmaps == nil {
		return nil, fmt.Errorf("mind map store cannot be nil")
	}
	if users == nil {
		return nil, fmt.Errorf("user store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &mindMapServiceImpl{
		mindmaps: mindmaps,
		users:    users,
		logger:   logger.With("component", "mindmap_service"),
		now:      time.Now,
	}, nil
}

func (s *mindMapServiceImpl) Create(ctx context.Context, userID uuid.UUID, params CreateMindMapParams) (*domain.MindMap, error) {
	m, err := domain.NewMindMap(userID, params.Title, params.Description, params.Nodes, params.Edges)
	if err != nil {
		return nil, err
	}
	if params.Layout != "" {
		m.Layout = params.Layout
	}
	if params.Theme != "" {
		m.Theme = params.Theme
	}
	m.IsPublic = params.IsPublic
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := s.mindmaps.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create mind map: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("mind map created",
		"mindmap_id", m.ID,
		"user_id", userID)
	return m, nil
}

func (s *mindMapServiceImpl) Get(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error) {
	return s.mindmaps.GetReadable(ctx, id, userID)
}

func (s *mindMapServiceImpl) List(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.MindMap, error) {
	return s.mindmaps.ListByOwner(ctx, userID, skip, limit)
}

func (s *mindMapServiceImpl) Update(ctx context.Context, id, userID uuid.UUID, update MindMapUpdate) (*domain.MindMap, error) {
	m, err := s.mindmaps.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if update.empty() {
		return m, nil
	}

	if update.Title != nil {
		m.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		m.Description = *update.Description
	}
	if update.Nodes != nil {
		m.Nodes = update.Nodes
	}
	if update.Edges != nil {
		m.Edges = update.Edges
	}
	if update.Layout != nil {
		m.Layout = *update.Layout
	}
	if update.Theme != nil {
		m.Theme = *update.Theme
	}
	if update.IsPublic != nil {
		m.IsPublic = *update.IsPublic
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := s.mindmaps.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update mind map: %w", err)
	}
	return m, nil
}

func (s *mindMapServiceImpl) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.mindmaps.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, store.ErrMindMapNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete mind map: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("mind map deleted",
		"mindmap_id", id,
		"user_id", userID)
	return nil
}

func (s *mindMapServiceImpl) SearchPublic(ctx context.Context, query string, skip, limit int) ([]*domain.MindMap, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query cannot be empty", domain.ErrValidation)
	}
	return s.mindmaps.SearchPublic(ctx, query, skip, limit)
}

// UsageStats counts maps overall and since the first of the current month
// (UTC). Last activity is the latest map update, falling back to the
// account's own update time.
func (s *mindMapServiceImpl) UsageStats(ctx context.Context, userID uuid.UUID) (*UsageStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.mindmaps.CountByOwner(ctx, userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to count mind maps: %w", err)
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthly, err := s.mindmaps.CountByOwner(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count mind maps: %w", err)
	}

	last, err := s.mindmaps.LastActivity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load last activity: %w", err)
	}
	if last == nil && !user.UpdatedAt.IsZero() {
		updated := user.UpdatedAt
		last = &updated
	}

	return &UsageStats{
		TotalMindMaps:   total,
		MonthlyMindMaps: monthly,
		UserSince:       user.CreatedAt,
		LastActivity:    last,
	}, nil
}
