package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/generation"
	"github.com/phrazzld/mindmap-api/internal/mindmap"
	"github.com/phrazzld/mindmap-api/internal/mocks"
	"github.com/phrazzld/mindmap-api/internal/service"
	"github.com/phrazzld/mindmap-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLLMService(t *testing.T, gen *mocks.MockGenerator) (service.LLMService, *mocks.MockMindMapStore) {
	t.Helper()
	maps := mocks.NewMockMindMapStore()
	svc, err := service.NewLLMService(gen, mindmap.NewBuilder(), maps, testLogger())
	require.NoError(t, err)
	return svc, maps
}

func TestLLMService_GenerateMindMap(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("stores the generated graph", func(t *testing.T) {
		gen := mocks.NewMockGeneratorWithTree(mocks.SampleTree("Photosynthesis"))
		svc, maps := newLLMService(t, gen)

		m, err := svc.GenerateMindMap(ctx, owner, &domain.GenerateMindMapInput{Topic: "  Photosynthesis "})
		require.NoError(t, err)
		assert.Equal(t, "Photosynthesis", m.Title)
		assert.Len(t, m.Nodes, 4)
		assert.Len(t, m.Edges, 3)
		assert.Equal(t, domain.LayoutHierarchical, m.Layout)
		assert.Equal(t, 1, maps.Len())

		require.Len(t, gen.MindMapRequests, 1)
		assert.Equal(t, domain.DefaultDepth, gen.MindMapRequests[0].Depth)
	})

	t.Run("provider failure stores a placeholder", func(t *testing.T) {
		svc, maps := newLLMService(t, mocks.MockGeneratorThatFails())

		m, err := svc.GenerateMindMap(ctx, owner, &domain.GenerateMindMapInput{Topic: "Rust"})
		require.NoError(t, err)
		require.Len(t, m.Nodes, 1)
		assert.Equal(t, "Rust", m.Nodes[0].Data.Label)
		assert.True(t, m.Nodes[0].Data.IsRoot)
		assert.Empty(t, m.Edges)
		assert.Equal(t, 1, maps.Len())
	})

	t.Run("invalid input never reaches the provider", func(t *testing.T) {
		gen := &mocks.MockGenerator{}
		svc, _ := newLLMService(t, gen)

		_, err := svc.GenerateMindMap(ctx, owner, &domain.GenerateMindMapInput{Topic: "", Depth: 2})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = svc.GenerateMindMap(ctx, owner, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		calls, _, _ := gen.Calls()
		assert.Equal(t, 0, calls)
	})

	t.Run("save failure", func(t *testing.T) {
		svc, maps := newLLMService(t, mocks.NewMockGeneratorWithTree(mocks.SampleTree("Go")))
		maps.CreateFn = func(ctx context.Context, m *domain.MindMap) error {
			return errors.New("disk full")
		}
		_, err := svc.GenerateMindMap(ctx, owner, &domain.GenerateMindMapInput{Topic: "Go"})
		assert.ErrorContains(t, err, "disk full")
	})
}

func seedMap(t *testing.T, maps *mocks.MockMindMapStore, owner uuid.UUID) *domain.MindMap {
	t.Helper()
	root := rootNode("root", "Biology")
	child := domain.Node{
		ID:       "cells",
		Type:     domain.NodeTypeCustom,
		Data:     domain.NodeData{Label: "Cells", Level: 1},
		ParentID: "root",
	}
	m, err := domain.NewMindMap(owner, "Biology", "", []domain.Node{root, child},
		[]domain.Edge{{ID: domain.EdgeID("root", "cells"), Source: "root", Target: "cells"}})
	require.NoError(t, err)
	require.NoError(t, maps.Create(context.Background(), m))
	return m
}

func TestLLMService_ExpandNode(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("appends children and bumps version", func(t *testing.T) {
		gen := &mocks.MockGenerator{Expansion: &generation.Expansion{Children: []generation.ExpansionChild{
			{Label: "Membrane"}, {Label: "Nucleus"}, {Label: "Ribosome"},
		}}}
		svc, maps := newLLMService(t, gen)
		m := seedMap(t, maps, owner)

		exp, err := svc.ExpandNode(ctx, owner, m.ID, domain.NodeExpansionRequest{
			NodeID: "cells", ExpansionTopic: "organelles", MaxChildren: 2,
		})
		require.NoError(t, err)
		assert.Len(t, exp.NewNodes, 2)
		assert.Len(t, exp.NewEdges, 2)
		for _, n := range exp.NewNodes {
			assert.Equal(t, "cells", n.ParentID)
			assert.Equal(t, 2, n.Data.Level)
		}
		assert.Equal(t, 2, exp.MindMap.Version)

		stored, err := maps.Get(ctx, m.ID, owner)
		require.NoError(t, err)
		assert.Len(t, stored.Nodes, 4)
		assert.Len(t, stored.Edges, 3)

		require.Len(t, gen.ExpandRequests, 1)
		assert.Equal(t, []string{"Biology"}, gen.ExpandRequests[0].Ancestors)
		assert.Equal(t, "Cells", gen.ExpandRequests[0].NodeLabel)
	})

	t.Run("unknown node", func(t *testing.T) {
		svc, maps := newLLMService(t, &mocks.MockGenerator{})
		m := seedMap(t, maps, owner)

		_, err := svc.ExpandNode(ctx, owner, m.ID, domain.NodeExpansionRequest{
			NodeID: "missing", ExpansionTopic: "x",
		})
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("map owned by someone else", func(t *testing.T) {
		svc, maps := newLLMService(t, &mocks.MockGenerator{})
		m := seedMap(t, maps, owner)

		_, err := svc.ExpandNode(ctx, uuid.New(), m.ID, domain.NodeExpansionRequest{
			NodeID: "cells", ExpansionTopic: "x",
		})
		assert.ErrorIs(t, err, store.ErrMindMapNotFound)
	})

	t.Run("provider failure leaves the map untouched", func(t *testing.T) {
		svc, maps := newLLMService(t, mocks.MockGeneratorThatFails())
		m := seedMap(t, maps, owner)

		exp, err := svc.ExpandNode(ctx, owner, m.ID, domain.NodeExpansionRequest{
			NodeID: "cells", ExpansionTopic: "organelles",
		})
		require.NoError(t, err)
		assert.Empty(t, exp.NewNodes)
		assert.Equal(t, 1, exp.MindMap.Version)
	})
}

func TestLLMService_SuggestTopics(t *testing.T) {
	ctx := context.Background()

	t.Run("caps results", func(t *testing.T) {
		many := make([]generation.TopicSuggestion, 8)
		for i := range many {
			many[i] = generation.TopicSuggestion{Title: "t", Category: "c"}
		}
		svc, _ := newLLMService(t, &mocks.MockGenerator{Suggestions: many})

		got, err := svc.SuggestTopics(ctx, "go")
		require.NoError(t, err)
		assert.Len(t, got, service.MaxSuggestions)
	})

	t.Run("falls back on failure", func(t *testing.T) {
		svc, _ := newLLMService(t, mocks.MockGeneratorThatFails())

		got, err := svc.SuggestTopics(ctx, "chess")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "chess - fundamentals", got[0].Title)
		assert.Equal(t, "Fundamentals", got[0].Category)
		assert.Equal(t, "chess - applications", got[1].Title)
		assert.Equal(t, "Applications", got[1].Category)
	})

	t.Run("empty query", func(t *testing.T) {
		svc, _ := newLLMService(t, &mocks.MockGenerator{})
		_, err := svc.SuggestTopics(ctx, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
