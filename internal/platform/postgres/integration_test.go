package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseURLEnv names a disposable database the integration tests may
// migrate and write to. The tests are skipped when it is unset.
const testDatabaseURLEnv = "MINDMAP_TEST_DATABASE_URL"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping database integration test", testDatabaseURLEnv)
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, Migrate(ctx, db, discardLogger()))
	return db
}

func createTestUser(t *testing.T, db *sql.DB) *domain.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user, err := domain.NewUser("user-"+suffix+"@example.com", "user_"+suffix, "Test User", "password123")
	require.NoError(t, err)
	user.HashedPassword = "not-a-real-hash"
	require.NoError(t, NewPostgresUserStore(db, discardLogger()).Create(context.Background(), user))
	return user
}

func TestIntegrationTaskLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tasks := NewPostgresTaskStore(db, discardLogger())
	owner := createTestUser(t, db)

	task := newPendingTask(t, owner.ID)
	require.NoError(t, tasks.Create(ctx, task))
	require.NotEqual(t, uuid.Nil, task.ID)

	require.NoError(t, tasks.UpdateProgress(ctx, task.ID, domain.TaskStatusRunning, 30))

	ok, err := tasks.FinishIfActive(ctx, task.ID, domain.StoppedOutcome(30))
	require.NoError(t, err)
	require.True(t, ok)

	stopped, err := tasks.Get(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusStopped, stopped.Status)
	assert.Equal(t, 30, stopped.Progress)
	require.NotNil(t, stopped.CompletedAt)
	firstCompletion := *stopped.CompletedAt

	// A second terminal write keeps the original completion time.
	require.NoError(t, tasks.Finish(ctx, task.ID, domain.StoppedOutcome(30)))
	again, err := tasks.Get(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, firstCompletion.Equal(*again.CompletedAt))

	clone := stopped.CloneForRestart()
	require.NoError(t, tasks.ReplaceStopped(ctx, task.ID, owner.ID, clone))
	assert.NotEqual(t, task.ID, clone.ID)

	_, err = tasks.Get(ctx, task.ID, owner.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound, "original is logically deleted")

	err = tasks.ReplaceStopped(ctx, task.ID, owner.ID, stopped.CloneForRestart())
	assert.ErrorIs(t, err, store.ErrConflict, "an original can be replaced once")

	list, err := tasks.List(ctx, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, clone.ID, list[0].ID)
	assert.Equal(t, domain.TaskStatusPending, list[0].Status)

	deleted, err := tasks.MarkDeleted(ctx, clone.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "active tasks cannot be deleted")
}

func TestIntegrationMindMapCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	maps := NewPostgresMindMapStore(db, discardLogger())
	owner := createTestUser(t, db)

	m, err := domain.NewMindMap(owner.ID, "Integration "+uuid.NewString()[:6], "desc",
		[]domain.Node{{ID: "root", Type: domain.NodeTypeCustom, Data: domain.NodeData{Label: "Root", IsRoot: true}}}, nil)
	require.NoError(t, err)
	require.NoError(t, maps.Create(ctx, m))

	m.IsPublic = true
	require.NoError(t, maps.Update(ctx, m))
	assert.Equal(t, 2, m.Version)

	found, err := maps.SearchPublic(ctx, m.Title, 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, found)

	count, err := maps.CountByOwner(ctx, owner.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, maps.Delete(ctx, m.ID, owner.ID))
	_, err = maps.Get(ctx, m.ID, owner.ID)
	assert.ErrorIs(t, err, store.ErrMindMapNotFound)
}
