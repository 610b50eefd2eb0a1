package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/store"
)

const taskColumns = `id, owner_id, kind, status, progress, input_data, result, error_message,
	title, description, is_stoppable, is_restartable, deleted, created_at, updated_at, completed_at`

// PostgresTaskStore implements store.TaskStore.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store on db. A nil logger falls back
// to slog.Default.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{db: db, logger: logger.With(slog.String("component", "task_store"))}
}

// WithTx implements store.TaskStore.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	input, err := json.Marshal(task.Input)
	if err != nil {
		return fmt.Errorf("%w: encode input: %v", store.ErrInvalidEntity, err)
	}
	result, err := encodeResult(task.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (owner_id, kind, status, progress, input_data, result, error_message,
			title, description, is_stoppable, is_restartable, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		task.OwnerID,
		string(task.Kind),
		string(task.Status),
		task.Progress,
		input,
		result,
		nullString(task.ErrorMessage),
		task.Title,
		task.Description,
		task.IsStoppable,
		task.IsRestartable,
		task.Deleted,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("owner_id", task.OwnerID.String()),
			slog.String("kind", string(task.Kind)))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("kind", string(task.Kind)))
	return nil
}

// Get implements store.TaskStore.
func (s *PostgresTaskStore) Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2 AND NOT deleted`
	return s.getOne(ctx, query, id, ownerID)
}

// GetByID implements store.TaskStore.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND NOT deleted`
	return s.getOne(ctx, query, id)
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, args ...any) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}
	return task, nil
}

// List implements store.TaskStore.
func (s *PostgresTaskStore) List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1 AND NOT deleted
		ORDER BY created_at DESC
		LIMIT $2`
	return s.query(ctx, "list", query, ownerID, limit)
}

// ListActive implements store.TaskStore.
func (s *PostgresTaskStore) ListActive(ctx context.Context, olderThan time.Time) ([]*domain.Task, error) {
	if olderThan.IsZero() {
		query := `SELECT ` + taskColumns + `
			FROM tasks
			WHERE status IN ('pending', 'running') AND NOT deleted
			ORDER BY created_at ASC`
		return s.query(ctx, "list_active", query)
	}
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status IN ('pending', 'running') AND NOT deleted AND updated_at < $1
		ORDER BY created_at ASC`
	return s.query(ctx, "list_active", query, olderThan.UTC())
}

func (s *PostgresTaskStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("operation", op), slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", op, "scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", op, "row iteration failed", MapError(err))
	}
	return tasks, nil
}

// UpdateProgress implements store.TaskStore. Only active tasks are touched;
// a task finished elsewhere yields store.ErrConflict.
func (s *PostgresTaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int) error {
	query := `
		UPDATE tasks
		SET status = $2, progress = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'running') AND NOT deleted
	`
	result, err := s.db.ExecContext(ctx, query, id, string(status), progress)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update task progress",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "update_progress", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrConflict)
}

// Finish implements store.TaskStore.
func (s *PostgresTaskStore) Finish(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) error {
	result, err := s.finish(ctx, id, outcome, false)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// FinishIfActive implements store.TaskStore.
func (s *PostgresTaskStore) FinishIfActive(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome) (bool, error) {
	result, err := s.finish(ctx, id, outcome, true)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresTaskStore) finish(ctx context.Context, id uuid.UUID, outcome domain.TaskOutcome, onlyActive bool) (sql.Result, error) {
	if !outcome.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidTaskStatus, outcome.Status)
	}
	resultJSON, err := encodeResult(outcome.Result)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks
		SET status = $2, progress = $3, result = $4, error_message = $5,
			updated_at = NOW(), completed_at = COALESCE(completed_at, NOW())
		WHERE id = $1`
	if onlyActive {
		query += ` AND status IN ('pending', 'running')`
	}

	result, err := s.db.ExecContext(ctx, query,
		id,
		string(outcome.Status),
		outcome.Progress,
		resultJSON,
		nullString(outcome.ErrorMessage),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to finish task",
			slog.String("task_id", id.String()),
			slog.String("status", string(outcome.Status)),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "finish", "update failed", MapError(err))
	}
	return result, nil
}

// MarkDeleted implements store.TaskStore.
func (s *PostgresTaskStore) MarkDeleted(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	query := `
		UPDATE tasks
		SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND NOT deleted AND status NOT IN ('pending', 'running')
	`
	result, err := s.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return false, store.NewStoreError("task", "delete", "update failed", MapError(err))
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplaceStopped implements store.TaskStore. When the store already runs on
// a transaction both writes join it; otherwise a new one is opened.
func (s *PostgresTaskStore) ReplaceStopped(ctx context.Context, id, ownerID uuid.UUID, replacement *domain.Task) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return s.replaceStopped(ctx, id, ownerID, replacement)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.WithTx(tx).(*PostgresTaskStore)
		return txStore.replaceStopped(ctx, id, ownerID, replacement)
	})
}

func (s *PostgresTaskStore) replaceStopped(ctx context.Context, id, ownerID uuid.UUID, replacement *domain.Task) error {
	query := `
		UPDATE tasks
		SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND status = 'stopped' AND NOT deleted AND is_restartable
	`
	result, err := s.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return store.NewStoreError("task", "restart", "delete original failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrConflict); err != nil {
		return err
	}
	return s.Create(ctx, replacement)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t            domain.Task
		kind, status string
		input        []byte
		result       []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&kind,
		&status,
		&t.Progress,
		&input,
		&result,
		&errorMessage,
		&t.Title,
		&t.Description,
		&t.IsStoppable,
		&t.IsRestartable,
		&t.Deleted,
		&t.CreatedAt,
		&t.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = domain.TaskKind(kind)
	t.Status = domain.TaskStatus(status)
	t.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}

	if t.Input, err = domain.DecodeTaskInput(t.Kind, input); err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	if t.Result, err = domain.DecodeTaskResult(t.Kind, result); err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	return &t, nil
}

func encodeResult(result domain.TaskResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: encode result: %v", store.ErrInvalidEntity, err)
	}
	return raw, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
