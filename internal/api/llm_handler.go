package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/mindmap-api/internal/api/shared"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/service"
)

// LLMHandler serves the synchronous generation endpoints under /api/llm.
type LLMHandler struct {
	llm      service.LLMService
	mindmaps service.MindMapService
	logger   *slog.Logger
}

// NewLLMHandler creates an LLMHandler.
func NewLLMHandler(llm service.LLMService, mindmaps service.MindMapService, logger *slog.Logger) *LLMHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMHandler{
		llm:      llm,
		mindmaps: mindmaps,
		logger:   logger.With(slog.String("component", "llm_handler")),
	}
}

// GenerateMindMap handles POST /api/llm/generate-mindmap.
func (h *LLMHandler) GenerateMindMap(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req GenerateMindMapRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.llm.GenerateMindMap(r.Context(), userID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate mind map")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, m)
}

// ExpandNode handles POST /api/llm/expand-node/{mindmap_id}.
func (h *LLMHandler) ExpandNode(w http.ResponseWriter, r *http.Request) {
	userID, mapID, ok := handleUserIDAndPathUUID(w, r, "mindmap_id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req NodeExpansionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	exp, err := h.llm.ExpandNode(r.Context(), userID, mapID, req.toDomain())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to expand node")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ExpandNodeResponse{
		MindMapID: exp.MindMap.ID,
		Version:   exp.MindMap.Version,
		NewNodes:  exp.NewNodes,
		NewEdges:  exp.NewEdges,
	})
}

// SuggestTopics handles POST /api/llm/suggest-topics?query=.
func (h *LLMHandler) SuggestTopics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger)); !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" || len(query) > 200 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter query must be 1-200 characters")
		return
	}

	suggestions, err := h.llm.SuggestTopics(r.Context(), query)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to suggest topics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SuggestTopicsResponse{Query: query, Suggestions: suggestions})
}

// UsageStats handles GET /api/llm/usage-stats.
func (h *LLMHandler) UsageStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	stats, err := h.mindmaps.UsageStats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load usage statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
