package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/generation"
	"github.com/phrazzld/mindmap-api/internal/mindmap"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// MaxSuggestions caps the topics returned by SuggestTopics.
const MaxSuggestions = 5

// Expansion is the outcome of expanding a node of a stored map.
type Expansion struct {
	MindMap  *domain.MindMap
	NewNodes []domain.Node
	NewEdges []domain.Edge
}

// LLMService runs generation requests synchronously, outside the task
// engine.
type LLMService interface {
	// GenerateMindMap builds and stores a map for the input. A provider
	// failure yields a stored single-node placeholder.
	GenerateMindMap(ctx context.Context, userID uuid.UUID, input *domain.GenerateMindMapInput) (*domain.MindMap, error)

	// ExpandNode appends generated children of nodeID to an owned map.
	ExpandNode(ctx context.Context, userID, mindMapID uuid.UUID, req domain.NodeExpansionRequest) (*Expansion, error)

	// SuggestTopics never fails on provider errors; it falls back to two
	// generic suggestions.
	SuggestTopics(ctx context.Context, query string) ([]generation.TopicSuggestion, error)
}

type llmServiceImpl struct {
	generator generation.Generator
	builder   *mindmap.Builder
	mindmaps  store.MindMapStore
	logger    *slog.Logger
}

// NewLLMService creates an LLMService.
func NewLLMService(
	generator generation.Generator,
	builder *mindmap.Builder,
	mindmaps store.MindMapStore,
	logger *slog.Logger,
) (LLMService, error) {
	switch {
	case generator == nil:
		return nil, fmt.Errorf("generator cannot be nil")
	case builder == nil:
		return nil, fmt.Errorf("builder cannot be nil")
	case mindmaps == nil:
		return nil, fmt.Errorf("mind map store cannot be nil")
	case logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &llmServiceImpl{
		generator: generator,
		builder:   builder,
		mindmaps:  mindmaps,
		logger:    logger.With("component", "llm_service"),
	}, nil
}

func (s *llmServiceImpl) GenerateMindMap(ctx context.Context, userID uuid.UUID, input *domain.GenerateMindMapInput) (*domain.MindMap, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if input == nil {
		return nil, fmt.Errorf("%w: missing input", domain.ErrInvalidInput)
	}
	if err := domain.PrepareInput(input); err != nil {
		return nil, err
	}

	var graph mindmap.Graph
	tree, err := s.generator.GenerateMindMap(ctx, generation.MindMapRequest{
		Topic:       input.Topic,
		Description: input.Description,
		Depth:       input.Depth,
		Style:       input.Style,
	})
	if err != nil || tree == nil {
		log.Warn("mind map generation failed, using placeholder", "error", err, "topic", input.Topic)
		graph = s.builder.Placeholder(input.Topic)
	} else {
		graph = s.builder.FromTree(tree, input.Topic)
	}

	m, err := domain.NewMindMap(userID, input.Topic, input.Description, graph.Nodes, graph.Edges)
	if err != nil {
		return nil, err
	}
	if err := s.mindmaps.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save mind map: %w", err)
	}
	log.Info("mind map generated", "mindmap_id", m.ID, "nodes", len(m.Nodes))
	return m, nil
}

func (s *llmServiceImpl) ExpandNode(ctx context.Context, userID, mindMapID uuid.UUID, req domain.NodeExpansionRequest) (*Expansion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	m, err := s.mindmaps.Get(ctx, mindMapID, userID)
	if err != nil {
		return nil, err
	}

	input := &domain.ExpandNodeInput{Request: req, CurrentNodes: m.Nodes}
	if err := domain.PrepareInput(input); err != nil {
		return nil, err
	}
	req = input.Request

	parent, ok := domain.FindNode(m.Nodes, req.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, req.NodeID)
	}

	exp, err := s.generator.ExpandNode(ctx, generation.ExpansionRequest{
		NodeLabel:      parent.Data.Label,
		ExpansionTopic: req.ExpansionTopic,
		Context:        req.Context,
		Ancestors:      mindmap.Ancestors(m.Nodes, req.NodeID),
		MaxChildren:    req.MaxChildren,
		Nested:         req.Nested,
	})
	if err != nil {
		log.Warn("node expansion failed, returning no children", "error", err, "node_id", req.NodeID)
		exp = nil
	}
	graph := s.builder.Expand(parent, exp, req.MaxChildren)

	if len(graph.Nodes) > 0 {
		m.Nodes = append(m.Nodes, graph.Nodes...)
		m.Edges = append(m.Edges, graph.Edges...)
		if err := s.mindmaps.Update(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to save expanded mind map: %w", err)
		}
	}

	return &Expansion{MindMap: m, NewNodes: graph.Nodes, NewEdges: graph.Edges}, nil
}

func (s *llmServiceImpl) SuggestTopics(ctx context.Context, query string) ([]generation.TopicSuggestion, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", domain.ErrValidation)
	}

	suggestions, err := s.generator.SuggestTopics(ctx, query)
	if err != nil || len(suggestions) == 0 {
		logger.FromContextOrDefault(ctx, s.logger).Warn("topic suggestion failed, using defaults", "error", err)
		return fallbackSuggestions(query), nil
	}
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions, nil
}

func fallbackSuggestions(query string) []generation.TopicSuggestion {
	return []generation.TopicSuggestion{
		{
			Title:       query + " - fundamentals",
			Description: "Explore the core concepts and building blocks of " + query,
			Category:    "Fundamentals",
		},
		{
			Title:       query + " - applications",
			Description: "Look at how " + query + " is applied in practice",
			Category:    "Applications",
		},
	}
}
