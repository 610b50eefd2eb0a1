package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
)

// MindMapStore defines the interface for mind-map persistence. Reads and
// writes are scoped to the owner unless stated otherwise.
type MindMapStore interface {
	Create(ctx context.Context, m *domain.MindMap) error

	// Get returns a map owned by userID. A map owned by someone else is
	// reported as ErrMindMapNotFound.
	Get(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error)

	// GetReadable returns a map owned by userID or marked public.
	GetReadable(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error)

	// ListByOwner returns the owner's maps, newest first.
	ListByOwner(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.MindMap, error)

	// Update writes every mutable field and increments Version on m.
	Update(ctx context.Context, m *domain.MindMap) error

	Delete(ctx context.Context, id, userID uuid.UUID) error

	// SearchPublic matches query against title and description of public
	// maps, case-insensitively.
	SearchPublic(ctx context.Context, query string, skip, limit int) ([]*domain.MindMap, error)

	// CountByOwner counts maps created at or after since. A zero since
	// counts all of them.
	CountByOwner(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// LastActivity returns the most recent updated_at among the owner's maps,
	// or nil when there are none.
	LastActivity(ctx context.Context, userID uuid.UUID) (*time.Time, error)

	WithTx(tx *sql.Tx) MindMapStore
}
