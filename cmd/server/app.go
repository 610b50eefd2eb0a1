package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/mindmap-api/internal/config"
	"github.com/phrazzld/mindmap-api/internal/events"
	"github.com/phrazzld/mindmap-api/internal/generation"
	"github.com/phrazzld/mindmap-api/internal/mindmap"
	"github.com/phrazzld/mindmap-api/internal/platform/gemini"
	"github.com/phrazzld/mindmap-api/internal/platform/postgres"
	"github.com/phrazzld/mindmap-api/internal/service"
	"github.com/phrazzld/mindmap-api/internal/service/auth"
	"github.com/phrazzld/mindmap-api/internal/store"
	"github.com/phrazzld/mindmap-api/internal/task"
)

// application holds every long-lived dependency so they can be built once
// and released in order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore    store.UserStore
	mindMapStore store.MindMapStore
	taskStore    store.TaskStore

	jwtService auth.JWTService
	passwords  *auth.BcryptVerifier
	generator  generation.Generator
	closeLLM   func() error

	userService    service.UserService
	mindMapService service.MindMapService
	llmService     service.LLMService

	events      *events.InMemoryEventEmitter
	pool        *task.Pool
	registry    *task.Registry
	taskService *task.Service
	reconciler  *task.Reconciler
}

// newApplication connects to Gemini and wires the rest of the dependency
// graph on top of it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{config: cfg, logger: logger, db: db}

	gen, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	app.generator = gen
	app.closeLLM = gen.Close
	logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)

	if err := app.wire(); err != nil {
		_ = gen.Close()
		return nil, err
	}

	if cfg.Task.SweepOnStartup {
		if _, err := app.reconciler.Sweep(ctx); err != nil {
			app.cleanup(ctx)
			return nil, err
		}
	}

	logger.Info("application initialized")
	return app, nil
}

// wire builds everything that depends on app.generator.
func (app *application) wire() error {
	cfg, logger, db := app.config, app.logger, app.db

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwords = auth.NewBcryptVerifier(cfg.Auth.BCryptCost)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.mindMapStore = postgres.NewPostgresMindMapStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.userService, err = service.NewUserService(app.userStore, app.passwords, app.passwords, app.jwtService, logger)
	if err != nil {
		return fmt.Errorf("failed to create user service: %w", err)
	}
	app.mindMapService, err = service.NewMindMapService(app.mindMapStore, app.userStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create mind map service: %w", err)
	}
	builder := mindmap.NewBuilder()
	app.llmService, err = service.NewLLMService(app.generator, builder, app.mindMapStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}

	app.events = events.NewInMemoryEventEmitter(logger)
	app.events.RegisterHandler(events.NewLogHandler(logger))

	app.pool = task.NewPool(cfg.Task.PoolSize, cfg.Task.QueueSize, logger)
	app.registry = task.NewRegistry()
	executor, err := task.NewExecutor(task.ExecutorDeps{
		Tasks:     app.taskStore,
		MindMaps:  app.mindMapStore,
		Generator: app.generator,
		Builder:   builder,
		Pool:      app.pool,
		Events:    app.events,
		Registry:  app.registry,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create task executor: %w", err)
	}
	app.taskService, err = task.NewService(app.taskStore, app.registry, executor, app.events, cfg.Task, logger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}
	app.reconciler = task.NewReconciler(app.taskStore, app.registry, app.events, cfg.Task, logger)
	return nil
}

// cleanup stops running tasks and releases the worker pool and the LLM
// client. The database is closed by the caller that opened it.
func (app *application) cleanup(ctx context.Context) {
	if app.taskService != nil {
		if err := app.taskService.Shutdown(ctx); err != nil {
			app.logger.Error("tasks did not stop in time", "error", err)
		}
	}
	if app.pool != nil {
		app.pool.Close()
	}
	if app.closeLLM != nil {
		if err := app.closeLLM(); err != nil {
			app.logger.Error("error closing LLM generator", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
