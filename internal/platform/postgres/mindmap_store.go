package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

const mindMapColumns = `id, user_id, title, description, nodes, edges, layout, theme,
	is_public, version, created_at, updated_at`

// PostgresMindMapStore implements store.MindMapStore.
type PostgresMindMapStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.MindMapStore = (*PostgresMindMapStore)(nil)

// NewPostgresMindMapStore creates a mind-map store on db.
func NewPostgresMindMapStore(db store.DBTX, logger *slog.Logger) *PostgresMindMapStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMindMapStore{db: db, logger: logger.With(slog.String("component", "mindmap_store"))}
}

// WithTx implements store.MindMapStore.
func (s *PostgresMindMapStore) WithTx(tx *sql.Tx) store.MindMapStore {
	return &PostgresMindMapStore{db: tx, logger: s.logger}
}

// Create implements store.MindMapStore.
func (s *PostgresMindMapStore) Create(ctx context.Context, m *domain.MindMap) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		log.Warn("mind map validation failed during create",
			slog.String("error", err.Error()),
			slog.String("mindmap_id", m.ID.String()))
		return err
	}
	nodes, edges, err := encodeGraph(m)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO mindmaps (id, user_id, title, description, nodes, edges, layout, theme,
			is_public, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.Title, m.Description, nodes, edges, m.Layout, m.Theme,
		m.IsPublic, m.Version, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		log.Error("failed to create mind map",
			slog.String("error", err.Error()),
			slog.String("mindmap_id", m.ID.String()),
			slog.String("user_id", m.UserID.String()))
		return store.NewStoreError("mindmap", "create", "insert failed", MapError(err))
	}

	log.Info("mind map created",
		slog.String("mindmap_id", m.ID.String()),
		slog.Int("node_count", len(m.Nodes)))
	return nil
}

// Get implements store.MindMapStore.
func (s *PostgresMindMapStore) Get(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error) {
	query := `SELECT ` + mindMapColumns + ` FROM mindmaps WHERE id = $1 AND user_id = $2`
	return s.getOne(ctx, query, id, userID)
}

// GetReadable implements store.MindMapStore.
func (s *PostgresMindMapStore) GetReadable(ctx context.Context, id, userID uuid.UUID) (*domain.MindMap, error) {
	query := `SELECT ` + mindMapColumns + ` FROM mindmaps WHERE id = $1 AND (user_id = $2 OR is_public)`
	return s.getOne(ctx, query, id, userID)
}

func (s *PostgresMindMapStore) getOne(ctx context.Context, query string, args ...any) (*domain.MindMap, error) {
	m, err := scanMindMap(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMindMapNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get mind map",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("mindmap", "get", "query failed", MapError(err))
	}
	return m, nil
}

// ListByOwner implements store.MindMapStore.
func (s *PostgresMindMapStore) ListByOwner(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.MindMap, error) {
	query := `SELECT ` + mindMapColumns + `
		FROM mindmaps
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	return s.query(ctx, "list", query, userID, skip, limit)
}

// SearchPublic implements store.MindMapStore.
func (s *PostgresMindMapStore) SearchPublic(ctx context.Context, q string, skip, limit int) ([]*domain.MindMap, error) {
	query := `SELECT ` + mindMapColumns + `
		FROM mindmaps
		WHERE is_public AND (title ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\')
		ORDER BY updated_at DESC
		OFFSET $2 LIMIT $3`
	return s.query(ctx, "search", query, likePattern(q), skip, limit)
}

func (s *PostgresMindMapStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.MindMap, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query mind maps", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("mindmap", op, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	maps := make([]*domain.MindMap, 0)
	for rows.Next() {
		m, err := scanMindMap(rows)
		if err != nil {
			return nil, store.NewStoreError("mindmap", op, "scan failed", err)
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("mindmap", op, "row iteration failed", MapError(err))
	}
	return maps, nil
}

// Update implements store.MindMapStore.
func (s *PostgresMindMapStore) Update(ctx context.Context, m *domain.MindMap) error {
	if err := m.Validate(); err != nil {
		return err
	}
	nodes, edges, err := encodeGraph(m)
	if err != nil {
		return err
	}

	query := `
		UPDATE mindmaps
		SET title = $3, description = $4, nodes = $5, edges = $6, layout = $7, theme = $8,
			is_public = $9, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING version, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		m.ID, m.UserID, m.Title, m.Description, nodes, edges, m.Layout, m.Theme, m.IsPublic,
	).Scan(&m.Version, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrMindMapNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update mind map",
			slog.String("mindmap_id", m.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("mindmap", "update", "update failed", MapError(err))
	}
	return nil
}

// Delete implements store.MindMapStore.
func (s *PostgresMindMapStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM mindmaps WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return store.NewStoreError("mindmap", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrMindMapNotFound)
}

// CountByOwner implements store.MindMapStore.
func (s *PostgresMindMapStore) CountByOwner(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mindmaps WHERE user_id = $1 AND created_at >= $2`,
		userID, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, store.NewStoreError("mindmap", "count", "query failed", MapError(err))
	}
	return count, nil
}

// LastActivity implements store.MindMapStore.
func (s *PostgresMindMapStore) LastActivity(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM mindmaps WHERE user_id = $1`, userID,
	).Scan(&last)
	if err != nil {
		return nil, store.NewStoreError("mindmap", "last_activity", "query failed", MapError(err))
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

func scanMindMap(row rowScanner) (*domain.MindMap, error) {
	var (
		m            domain.MindMap
		nodes, edges []byte
	)
	err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.Description, &nodes, &edges,
		&m.Layout, &m.Theme, &m.IsPublic, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(nodes, &m.Nodes); err != nil {
		return nil, fmt.Errorf("mind map %s: decode nodes: %w", m.ID, err)
	}
	if err := json.Unmarshal(edges, &m.Edges); err != nil {
		return nil, fmt.Errorf("mind map %s: decode edges: %w", m.ID, err)
	}
	if m.Nodes == nil {
		m.Nodes = []domain.Node{}
	}
	if m.Edges == nil {
		m.Edges = []domain.Edge{}
	}
	return &m, nil
}

func encodeGraph(m *domain.MindMap) ([]byte, []byte, error) {
	nodes := m.Nodes
	if nodes == nil {
		nodes = []domain.Node{}
	}
	edges := m.Edges
	if edges == nil {
		edges = []domain.Edge{}
	}
	n, err := json.Marshal(nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode nodes: %v", store.ErrInvalidEntity, err)
	}
	e, err := json.Marshal(edges)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode edges: %v", store.ErrInvalidEntity, err)
	}
	return n, e, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps q for a substring ILIKE match with wildcards escaped.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
