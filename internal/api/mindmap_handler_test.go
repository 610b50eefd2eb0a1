package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createMindMap(t *testing.T, token string, body map[string]any) domain.MindMap {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/mindmaps", token, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[domain.MindMap](t, rr)
}

func TestMindMapHandler_CRUD(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	created := env.createMindMap(t, aliceToken, map[string]any{
		"title":       "Cell biology",
		"description": "Organelles",
		"nodes": []domain.Node{
			{ID: "root", Type: domain.NodeTypeCustom, Data: domain.NodeData{Label: "Cell", IsRoot: true}},
		},
	})
	assert.Equal(t, env.alice.ID, created.UserID)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.IsPublic)
	path := "/api/mindmaps/" + created.ID.String()

	rr := env.do(t, http.MethodGet, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Cell biology", decodeBody[domain.MindMap](t, rr).Title)

	rr = env.do(t, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "private maps are hidden from other users")
	assert.Equal(t, "Mind map not found", errorMessage(t, rr))

	rr = env.do(t, http.MethodPut, path, aliceToken, map[string]any{"title": "Cells", "is_public": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[domain.MindMap](t, rr)
	assert.Equal(t, "Cells", updated.Title)
	assert.True(t, updated.IsPublic)
	assert.Equal(t, 2, updated.Version)
	assert.Len(t, updated.Nodes, 1, "omitted nodes are left unchanged")

	rr = env.do(t, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code, "public maps are readable by anyone")

	rr = env.do(t, http.MethodPut, path, bobToken, map[string]any{"title": "Mine now"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(t, http.MethodDelete, path, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/mindmaps", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]domain.MindMap](t, rr), 1)

	rr = env.do(t, http.MethodGet, "/api/mindmaps", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = env.do(t, http.MethodDelete, path, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = env.do(t, http.MethodGet, path, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMindMapHandler_ListPaging(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	for _, title := range []string{"One", "Two", "Three"} {
		env.createMindMap(t, aliceToken, map[string]any{"title": title})
	}

	rr := env.do(t, http.MethodGet, "/api/mindmaps?limit=2", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]domain.MindMap](t, rr), 2)

	rr = env.do(t, http.MethodGet, "/api/mindmaps?skip=2&limit=2", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]domain.MindMap](t, rr), 1)

	rr = env.do(t, http.MethodGet, "/api/mindmaps?limit=101", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Validation failed: limit must be between 1 and 100", errorMessage(t, rr))

	rr = env.do(t, http.MethodGet, "/api/mindmaps?skip=-1", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMindMapHandler_SearchPublic(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.createMindMap(t, aliceToken, map[string]any{"title": "Quantum physics", "is_public": true})
	env.createMindMap(t, aliceToken, map[string]any{"title": "Quantum secrets"})
	env.createMindMap(t, bobToken, map[string]any{"title": "Gardening", "description": "quantum of soil", "is_public": true})

	rr := env.do(t, http.MethodGet, "/api/mindmaps/public/search?q=QUANTUM", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	found := decodeBody[[]domain.MindMap](t, rr)
	require.Len(t, found, 2)
	for _, m := range found {
		assert.True(t, m.IsPublic)
	}

	rr = env.do(t, http.MethodGet, "/api/mindmaps/public/search?q=nothing-matches", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/mindmaps/public/search?q=%20", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Query parameter q is required", errorMessage(t, rr))

	rr = env.do(t, http.MethodGet, "/api/mindmaps/public/search?q=x&limit=51", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMindMapHandler_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	existing := env.createMindMap(t, aliceToken, map[string]any{"title": "Existing"})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name: "missing title", method: http.MethodPost, path: "/api/mindmaps",
			body:       map[string]any{"description": "no title"},
			wantStatus: http.StatusBadRequest, wantError: "Invalid title: required field",
		},
		{
			name: "unknown layout", method: http.MethodPost, path: "/api/mindmaps",
			body:       map[string]any{"title": "x", "layout": "spiral"},
			wantStatus: http.StatusBadRequest, wantError: "Invalid layout: must be one of hierarchical radial force",
		},
		{
			name: "duplicate node ids", method: http.MethodPost, path: "/api/mindmaps",
			body: map[string]any{"title": "x", "nodes": []domain.Node{
				{ID: "a", Data: domain.NodeData{Label: "A"}},
				{ID: "a", Data: domain.NodeData{Label: "B"}},
			}},
			wantStatus: http.StatusBadRequest, wantError: `Validation failed: duplicate node id "a"`,
		},
		{
			name: "malformed json", method: http.MethodPost, path: "/api/mindmaps",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest, wantError: "Invalid request format",
		},
		{
			name: "empty title on update", method: http.MethodPut, path: "/api/mindmaps/" + existing.ID.String(),
			body:       map[string]any{"title": ""},
			wantStatus: http.StatusBadRequest, wantError: "Invalid title: must be at least 1",
		},
		{
			name: "bad id", method: http.MethodGet, path: "/api/mindmaps/123",
			wantStatus: http.StatusBadRequest, wantError: "Invalid ID",
		},
		{
			name: "unknown map", method: http.MethodDelete, path: "/api/mindmaps/" + uuid.NewString(),
			wantStatus: http.StatusNotFound, wantError: "Mind map not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, aliceToken, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantError, errorMessage(t, rr))
		})
	}
}
