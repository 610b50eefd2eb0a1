package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/api/middleware"
	"github.com/phrazzld/mindmap-api/internal/config"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/events"
	"github.com/phrazzld/mindmap-api/internal/mindmap"
	"github.com/phrazzld/mindmap-api/internal/mocks"
	"github.com/phrazzld/mindmap-api/internal/service"
	"github.com/phrazzld/mindmap-api/internal/service/auth"
	"github.com/phrazzld/mindmap-api/internal/task"
	"github.com/stretchr/testify/require"
)

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

type testEnv struct {
	router http.Handler
	users  *mocks.MockUserStore
	maps   *mocks.MockMindMapStore
	tasks  *mocks.MockTaskStore
	gen    *mocks.MockGenerator

	alice *domain.User
	bob   *domain.User
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires the real services and handlers over in-memory stores.
func newTestEnv(t *testing.T, gen *mocks.MockGenerator, db Pinger) *testEnv {
	t.Helper()
	log := testLogger()
	if gen == nil {
		gen = mocks.NewMockGeneratorWithTree(mocks.SampleTree("Topic"))
	}

	env := &testEnv{
		users: mocks.NewMockUserStore(),
		maps:  mocks.NewMockMindMapStore(),
		tasks: mocks.NewMockTaskStore(),
		gen:   gen,
	}
	env.alice = seedUser(t, env.users, "alice")
	env.bob = seedUser(t, env.users, "bob")

	tokens := map[string]uuid.UUID{aliceToken: env.alice.ID, bobToken: env.bob.ID}
	jwtService := &mocks.MockJWTService{
		Token: "issued-token",
		ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
			id, ok := tokens[token]
			if !ok {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: id, TokenType: auth.TokenTypeAccess}, nil
		},
	}

	verifier := &mocks.MockPasswordVerifier{}
	userSvc, err := service.NewUserService(env.users, verifier, verifier, jwtService, log)
	require.NoError(t, err)
	mapSvc, err := service.NewMindMapService(env.maps, env.users, log)
	require.NoError(t, err)
	builder := mindmap.NewBuilder()
	llmSvc, err := service.NewLLMService(gen, builder, env.maps, log)
	require.NoError(t, err)

	registry := task.NewRegistry()
	pool := task.NewPool(2, 8, log)
	emitter := events.NewInMemoryEventEmitter(log)
	executor, err := task.NewExecutor(task.ExecutorDeps{
		Tasks:     env.tasks,
		MindMaps:  env.maps,
		Generator: gen,
		Builder:   builder,
		Pool:      pool,
		Events:    emitter,
		Registry:  registry,
	}, log)
	require.NoError(t, err)
	taskSvc, err := task.NewService(env.tasks, registry, executor, emitter, config.TaskConfig{
		PoolSize:         2,
		QueueSize:        8,
		DefaultListLimit: 10,
		MaxListLimit:     50,
	}, log)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = taskSvc.Shutdown(ctx)
		pool.Close()
	})

	r := chi.NewRouter()
	r.Use(middleware.Trace(log))
	Routes{
		Auth:         NewAuthHandler(userSvc, log),
		Tasks:        NewTaskHandler(taskSvc, log),
		MindMaps:     NewMindMapHandler(mapSvc, log),
		LLM:          NewLLMHandler(llmSvc, mapSvc, log),
		Health:       NewHealthHandler(db),
		Authenticate: middleware.NewAuthMiddleware(jwtService).Authenticate,
	}.Mount(r)
	env.router = r
	return env
}

func seedUser(t *testing.T, users *mocks.MockUserStore, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name+"@example.com", name, "", "password123")
	require.NoError(t, err)
	u.HashedPassword = "hashed:password123"
	u.Password = ""
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

// do sends a request through the router. A string body is sent verbatim,
// anything else is JSON encoded.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[struct {
		Error string `json:"error"`
	}](t, rr).Error
}
