package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/mindmap-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	GenerateMindMapFn func(ctx context.Context, req generation.MindMapRequest) (*generation.MindMapTree, error)
	ExpandNodeFn      func(ctx context.Context, req generation.ExpansionRequest) (*generation.Expansion, error)
	SuggestTopicsFn   func(ctx context.Context, query string) ([]generation.TopicSuggestion, error)

	// Default response values
	Tree        *generation.MindMapTree
	Expansion   *generation.Expansion
	Suggestions []generation.TopicSuggestion
	Err         error

	mu              sync.Mutex
	MindMapRequests []generation.MindMapRequest
	ExpandRequests  []generation.ExpansionRequest
	Queries         []string
}

// GenerateMindMap implements the generation.Generator interface
func (m *MockGenerator) GenerateMindMap(ctx context.Context, req generation.MindMapRequest) (*generation.MindMapTree, error) {
	m.mu.Lock()
	m.MindMapRequests = append(m.MindMapRequests, req)
	m.mu.Unlock()

	if m.GenerateMindMapFn != nil {
		return m.GenerateMindMapFn(ctx, req)
	}
	return m.Tree, m.Err
}

// ExpandNode implements the generation.Generator interface
func (m *MockGenerator) ExpandNode(ctx context.Context, req generation.ExpansionRequest) (*generation.Expansion, error) {
	m.mu.Lock()
	m.ExpandRequests = append(m.ExpandRequests, req)
	m.mu.Unlock()

	if m.ExpandNodeFn != nil {
		return m.ExpandNodeFn(ctx, req)
	}
	return m.Expansion, m.Err
}

// SuggestTopics implements the generation.Generator interface
func (m *MockGenerator) SuggestTopics(ctx context.Context, query string) ([]generation.TopicSuggestion, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if m.SuggestTopicsFn != nil {
		return m.SuggestTopicsFn(ctx, query)
	}
	return m.Suggestions, m.Err
}

// Calls returns how many times each method was called.
func (m *MockGenerator) Calls() (mindmaps, expansions, suggestions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.MindMapRequests), len(m.ExpandRequests), len(m.Queries)
}

// NewMockGeneratorWithTree creates a MockGenerator that returns tree
func NewMockGeneratorWithTree(tree *generation.MindMapTree) *MockGenerator {
	return &MockGenerator{Tree: tree}
}

// MockGeneratorThatFails creates a MockGenerator that simulates a generation failure
func MockGeneratorThatFails() *MockGenerator {
	return &MockGenerator{Err: generation.ErrGenerationFailed}
}

// MockGeneratorWithContentBlocked creates a MockGenerator that simulates content being blocked
func MockGeneratorWithContentBlocked() *MockGenerator {
	return &MockGenerator{Err: generation.ErrContentBlocked}
}

// SampleTree returns a two-branch outline about topic.
func SampleTree(topic string) *generation.MindMapTree {
	return &generation.MindMapTree{
		CentralTopic: topic,
		Branches: []generation.Branch{
			{ID: "b1", Label: "Basics", Level: 1, Children: []generation.Branch{
				{ID: "b1a", Label: "Definitions", Level: 2},
			}},
			{ID: "b2", Label: "Applications", Level: 1},
		},
	}
}
