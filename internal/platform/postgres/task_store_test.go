package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskColumnNames = []string{
	"id", "owner_id", "kind", "status", "progress", "input_data", "result", "error_message",
	"title", "description", "is_stoppable", "is_restartable", "deleted", "created_at", "updated_at", "completed_at",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func newPendingTask(t *testing.T, owner uuid.UUID) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, &domain.GenerateMindMapInput{Topic: "Astronomy"})
	require.NoError(t, err)
	return task
}

func TestTaskStoreCreateAssignsID(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	owner := uuid.New()
	id := uuid.New()
	now := time.Now().UTC()
	task := newPendingTask(t, owner)

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(owner, "generate_mindmap", "pending", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), nil,
			"Mind map: Astronomy", sqlmock.AnyArg(), true, true, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id.String(), now, now))

	require.NoError(t, s.Create(context.Background(), task))
	assert.Equal(t, id, task.ID)
	assert.Equal(t, now, task.CreatedAt)
}

func TestTaskStoreGet(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	id, owner := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id = \\$1 AND owner_id = \\$2 AND NOT deleted").
		WithArgs(id, owner).
		WillReturnRows(sqlmock.NewRows(taskColumnNames).AddRow(
			id.String(), owner.String(), "expand_node", "completed", 100,
			[]byte(`{"request":{"node_id":"n1","expansion_topic":"x","max_children":2},"current_nodes":[]}`),
			[]byte(`{"new_nodes":[{"id":"c1"}],"new_edges":[]}`),
			nil, "Expand: x", "Expand node n1", true, true, false, now, now, now,
		))

	task, err := s.Get(context.Background(), id, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	require.IsType(t, &domain.ExpandNodeInput{}, task.Input)
	assert.Equal(t, "n1", task.Input.(*domain.ExpandNodeInput).Request.NodeID)
	require.IsType(t, &domain.ExpandNodeResult{}, task.Result)
	require.NotNil(t, task.CompletedAt)
	assert.Empty(t, task.ErrorMessage)
}

func TestTaskStoreGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectQuery("SELECT (.+) FROM tasks").WillReturnRows(sqlmock.NewRows(taskColumnNames))

	_, err := s.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreFinishStampsCompletionOnce(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("completed_at = COALESCE(completed_at, NOW())")).
		WithArgs(id, "failed", 0, sqlmock.AnyArg(), "boom").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Finish(context.Background(), id, domain.FailedOutcome("boom")))
}

func TestTaskStoreFinishRejectsNonTerminal(t *testing.T) {
	db, _ := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	err := s.Finish(context.Background(), uuid.New(), domain.TaskOutcome{Status: domain.TaskStatusRunning})
	assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)
}

func TestTaskStoreFinishIfActive(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("AND status IN ('pending', 'running')")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("AND status IN ('pending', 'running')")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.FinishIfActive(context.Background(), id, domain.StoppedOutcome(0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.FinishIfActive(context.Background(), id, domain.StoppedOutcome(0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTaskStoreUpdateProgressConflict(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProgress(context.Background(), uuid.New(), domain.TaskStatusRunning, 30)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestTaskStoreMarkDeleted(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	id, owner := uuid.New(), uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("status NOT IN ('pending', 'running')")).
		WithArgs(id, owner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.MarkDeleted(context.Background(), id, owner)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTaskStoreReplaceStopped(t *testing.T) {
	t.Run("deletes original and inserts clone atomically", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, discardLogger())

		id, owner, newID := uuid.New(), uuid.New(), uuid.New()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("status = 'stopped' AND NOT deleted AND is_restartable")).
			WithArgs(id, owner).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO tasks").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(newID.String(), now, now))
		mock.ExpectCommit()

		replacement := newPendingTask(t, owner)
		require.NoError(t, s.ReplaceStopped(context.Background(), id, owner, replacement))
		assert.Equal(t, newID, replacement.ID)
	})

	t.Run("ineligible original rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, discardLogger())

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.ReplaceStopped(context.Background(), uuid.New(), uuid.New(), newPendingTask(t, uuid.New()))
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestTaskStoreListActive(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	now := time.Now().UTC()
	input := []byte(`{"topic":"Tides","depth":3,"style":"simple"}`)
	mock.ExpectQuery("updated_at < \\$1").
		WillReturnRows(sqlmock.NewRows(taskColumnNames).AddRow(
			uuid.NewString(), uuid.NewString(), "generate_mindmap", "running", 30,
			input, nil, nil, "Mind map: Tides", "d", true, true, false, now, now, nil,
		))

	tasks, err := s.ListActive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 30, tasks[0].Progress)
	assert.Nil(t, tasks[0].Result)
	assert.Nil(t, tasks[0].CompletedAt)
}
