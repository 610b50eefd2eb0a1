package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/mindmap-api/internal/api/shared"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/service"
)

// Paging limits for mind-map listings.
const (
	defaultPageSize   = 10
	maxPageSize       = 100
	maxSearchPageSize = 50
)

// MindMapHandler serves /api/mindmaps.
type MindMapHandler struct {
	mindmaps service.MindMapService
	logger   *slog.Logger
}

// NewMindMapHandler creates a MindMapHandler.
func NewMindMapHandler(mindmaps service.MindMapService, logger *slog.Logger) *MindMapHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MindMapHandler{
		mindmaps: mindmaps,
		logger:   logger.With(slog.String("component", "mindmap_handler")),
	}
}

// Create handles POST /api/mindmaps.
func (h *MindMapHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req CreateMindMapRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.mindmaps.Create(r.Context(), userID, service.CreateMindMapParams{
		Title:       req.Title,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Layout:      req.Layout,
		Theme:       req.Theme,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create mind map")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, m)
}

// List handles GET /api/mindmaps?skip=&limit=.
func (h *MindMapHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	skip, limit, err := paging(r, maxPageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	maps, err := h.mindmaps.List(r.Context(), userID, skip, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list mind maps")
		return
	}
	respondMindMaps(w, r, maps)
}

// Get handles GET /api/mindmaps/{id}. Public maps are readable by anyone.
func (h *MindMapHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	m, err := h.mindmaps.Get(r.Context(), id, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get mind map")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, m)
}

// Update handles PUT /api/mindmaps/{id}.
func (h *MindMapHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req UpdateMindMapRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.mindmaps.Update(r.Context(), id, userID, service.MindMapUpdate{
		Title:       req.Title,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Layout:      req.Layout,
		Theme:       req.Theme,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update mind map")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, m)
}

// Delete handles DELETE /api/mindmaps/{id}.
func (h *MindMapHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	if err := h.mindmaps.Delete(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete mind map")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchPublic handles GET /api/mindmaps/public/search?q=.
func (h *MindMapHandler) SearchPublic(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger)); !ok {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	skip, limit, err := paging(r, maxSearchPageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	maps, err := h.mindmaps.SearchPublic(r.Context(), q, skip, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search mind maps")
		return
	}
	respondMindMaps(w, r, maps)
}

func paging(r *http.Request, maxLimit int) (skip, limit int, err error) {
	skip, err = queryInt(r, "skip", 0, 0, 1<<30)
	if err != nil {
		return 0, 0, err
	}
	limit, err = queryInt(r, "limit", defaultPageSize, 1, maxLimit)
	return skip, limit, err
}

func respondMindMaps(w http.ResponseWriter, r *http.Request, maps []*domain.MindMap) {
	if maps == nil {
		maps = []*domain.MindMap{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, maps)
}
