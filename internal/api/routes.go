package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes groups the handlers mounted by Mount.
type Routes struct {
	Auth         *AuthHandler
	Tasks        *TaskHandler
	MindMaps     *MindMapHandler
	LLM          *LLMHandler
	Health       *HealthHandler
	Authenticate func(http.Handler) http.Handler
}

// Mount registers every endpoint on r. Everything under /api except
// register and login requires authentication.
func (rt Routes) Mount(r chi.Router) {
	r.Get("/health", rt.Health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", rt.Auth.Register)
		r.Post("/auth/login", rt.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(rt.Authenticate)

			r.Get("/auth/me", rt.Auth.Me)
			r.Put("/auth/me", rt.Auth.UpdateMe)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/generate-mindmap", rt.Tasks.CreateGenerateMindMap)
				r.Post("/expand-node", rt.Tasks.CreateExpandNode)
				r.Get("/", rt.Tasks.List)
				r.Get("/{id}", rt.Tasks.Get)
				r.Post("/{id}/stop", rt.Tasks.Stop)
				r.Post("/{id}/restart", rt.Tasks.Restart)
				r.Delete("/{id}", rt.Tasks.Delete)
			})

			r.Route("/mindmaps", func(r chi.Router) {
				r.Post("/", rt.MindMaps.Create)
				r.Get("/", rt.MindMaps.List)
				r.Get("/public/search", rt.MindMaps.SearchPublic)
				r.Get("/{id}", rt.MindMaps.Get)
				r.Put("/{id}", rt.MindMaps.Update)
				r.Delete("/{id}", rt.MindMaps.Delete)
			})

			r.Route("/llm", func(r chi.Router) {
				r.Post("/generate-mindmap", rt.LLM.GenerateMindMap)
				r.Post("/expand-node/{mindmap_id}", rt.LLM.ExpandNode)
				r.Post("/suggest-topics", rt.LLM.SuggestTopics)
				r.Get("/usage-stats", rt.LLM.UsageStats)
			})
		})
	})
}
