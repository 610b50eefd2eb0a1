package generation

import "context"

// Generator produces mind-map content from a language model.
type Generator interface {
	// GenerateMindMap returns a hierarchical outline for the request topic.
	GenerateMindMap(ctx context.Context, req MindMapRequest) (*MindMapTree, error)

	// ExpandNode returns new children for a node, given its ancestor path.
	ExpandNode(ctx context.Context, req ExpansionRequest) (*Expansion, error)

	// SuggestTopics returns related topics for a free-text query.
	SuggestTopics(ctx context.Context, query string) ([]TopicSuggestion, error)
}

// MindMapRequest is the input to GenerateMindMap.
type MindMapRequest struct {
	Topic       string
	Description string
	Depth       int
	Style       string
}

// Branch is one node of a generated outline.
type Branch struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Level    int      `json:"level"`
	Children []Branch `json:"children"`
}

// MindMapTree is the outline returned by the model for a topic.
type MindMapTree struct {
	CentralTopic string   `json:"central_topic"`
	Branches     []Branch `json:"branches"`
}

// ExpansionRequest is the input to ExpandNode. Ancestors lists labels from
// the root down to the parent of the node being expanded.
type ExpansionRequest struct {
	NodeLabel      string
	ExpansionTopic string
	Context        string
	Ancestors      []string
	MaxChildren    int
	Nested         bool
}

// ExpansionChild is a proposed child node.
type ExpansionChild struct {
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Children    []ExpansionChild `json:"children,omitempty"`
}

// Expansion is the model's answer to an ExpandNode call.
type Expansion struct {
	Children []ExpansionChild `json:"children"`
}

// TopicSuggestion is one related topic.
type TopicSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}
