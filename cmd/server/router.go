package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/mindmap-api/internal/api"
	"github.com/phrazzld/mindmap-api/internal/api/middleware"
)

// requestTimeout bounds synchronous handlers. The LLM endpoints call the
// model inline, so it is generous.
const requestTimeout = 90 * time.Second

// setupRouter creates the chi router with the shared middleware stack and
// every API route.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.Trace(app.logger))

	var db api.Pinger
	if app.db != nil {
		db = app.db
	}

	api.Routes{
		Auth:         api.NewAuthHandler(app.userService, app.logger),
		Tasks:        api.NewTaskHandler(app.taskService, app.logger),
		MindMaps:     api.NewMindMapHandler(app.mindMapService, app.logger),
		LLM:          api.NewLLMHandler(app.llmService, app.mindMapService, app.logger),
		Health:       api.NewHealthHandler(db),
		Authenticate: middleware.NewAuthMiddleware(app.jwtService).Authenticate,
	}.Mount(r)

	return r
}
