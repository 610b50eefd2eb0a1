package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskKind selects the work function and the input/result schema of a task.
type TaskKind string

// Supported task kinds.
const (
	TaskKindGenerateMindMap TaskKind = "generate_mindmap"
	TaskKindExpandNode      TaskKind = "expand_node"
)

// IsValid reports whether k belongs to the closed set of kinds.
func (k TaskKind) IsValid() bool {
	return k == TaskKindGenerateMindMap || k == TaskKindExpandNode
}

// Mind-map generation styles.
const (
	StyleComprehensive = "comprehensive"
	StyleSimple        = "simple"
	StyleDetailed      = "detailed"
)

// Input limits.
const (
	MaxTopicLength       = 200
	MaxDescriptionLength = 1000
	MinDepth             = 1
	MaxDepth             = 5
	DefaultDepth         = 3
	MinChildren          = 1
	MaxChildren          = 20
	DefaultMaxChildren   = 15
)

// TaskInput is the kind-tagged payload a task is created with. The concrete
// types are *GenerateMindMapInput and *ExpandNodeInput.
type TaskInput interface {
	Kind() TaskKind
	Validate() error
	normalize()
	describe() (title, description string)
}

// PrepareInput fills the defaults of in and validates it.
func PrepareInput(in TaskInput) error {
	in.normalize()
	return in.Validate()
}

// TaskResult is the kind-tagged payload of a completed task. The concrete
// types are *GenerateMindMapResult and *ExpandNodeResult.
type TaskResult interface {
	Kind() TaskKind
}

// GenerateMindMapInput asks for a new mind map built around Topic.
type GenerateMindMapInput struct {
	Topic       string `json:"topic"`
	Description string `json:"description,omitempty"`
	Depth       int    `json:"depth"`
	Style       string `json:"style"`
}

// Kind implements TaskInput.
func (in *GenerateMindMapInput) Kind() TaskKind { return TaskKindGenerateMindMap }

func (in *GenerateMindMapInput) normalize() {
	in.Topic = strings.TrimSpace(in.Topic)
	if in.Depth == 0 {
		in.Depth = DefaultDepth
	}
	if in.Style == "" {
		in.Style = StyleComprehensive
	}
}

// Validate implements TaskInput.
func (in *GenerateMindMapInput) Validate() error {
	if n := utf8.RuneCountInString(in.Topic); n < 1 || n > MaxTopicLength {
		return fmt.Errorf("%w: topic must be between 1 and %d characters", ErrInvalidInput, MaxTopicLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	if in.Depth < MinDepth || in.Depth > MaxDepth {
		return fmt.Errorf("%w: depth must be between %d and %d", ErrInvalidInput, MinDepth, MaxDepth)
	}
	switch in.Style {
	case StyleComprehensive, StyleSimple, StyleDetailed:
	default:
		return fmt.Errorf("%w: unknown style %q", ErrInvalidInput, in.Style)
	}
	return nil
}

func (in *GenerateMindMapInput) describe() (string, string) {
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Generate a %s mind map with depth %d", in.Style, in.Depth)
	}
	return "Mind map: " + in.Topic, description
}

// NodeExpansionRequest describes which node to expand and how.
type NodeExpansionRequest struct {
	NodeID         string `json:"node_id"`
	ExpansionTopic string `json:"expansion_topic"`
	Context        string `json:"context,omitempty"`
	MaxChildren    int    `json:"max_children"`
	// Nested asks for a second level of children under each new child.
	Nested bool `json:"nested,omitempty"`
}

// ExpandNodeInput carries an expansion request plus the caller's current
// node set, which must contain the target node.
type ExpandNodeInput struct {
	Request      NodeExpansionRequest `json:"request"`
	CurrentNodes []Node               `json:"current_nodes"`
}

// Kind implements TaskInput.
func (in *ExpandNodeInput) Kind() TaskKind { return TaskKindExpandNode }

func (in *ExpandNodeInput) normalize() {
	in.Request.NodeID = strings.TrimSpace(in.Request.NodeID)
	in.Request.ExpansionTopic = strings.TrimSpace(in.Request.ExpansionTopic)
	if in.Request.MaxChildren == 0 {
		in.Request.MaxChildren = DefaultMaxChildren
	}
	if in.CurrentNodes == nil {
		in.CurrentNodes = []Node{}
	}
}

// Validate implements TaskInput. Whether the target node exists is checked
// at execution time, not here.
func (in *ExpandNodeInput) Validate() error {
	r := in.Request
	if r.NodeID == "" {
		return fmt.Errorf("%w: node_id is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(r.ExpansionTopic); n < 1 || n > MaxTopicLength {
		return fmt.Errorf("%w: expansion_topic must be between 1 and %d characters", ErrInvalidInput, MaxTopicLength)
	}
	if utf8.RuneCountInString(r.Context) > MaxDescriptionLength {
		return fmt.Errorf("%w: context must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	if r.MaxChildren < MinChildren || r.MaxChildren > MaxChildren {
		return fmt.Errorf("%w: max_children must be between %d and %d", ErrInvalidInput, MinChildren, MaxChildren)
	}
	return nil
}

func (in *ExpandNodeInput) describe() (string, string) {
	description := in.Request.Context
	if description == "" {
		description = "Expand node " + in.Request.NodeID
	}
	return "Expand: " + in.Request.ExpansionTopic, description
}

// GenerateMindMapResult is the graph produced by a generate_mindmap task.
type GenerateMindMapResult struct {
	MindMapID   uuid.UUID `json:"mindmap_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	// Fallback is set when the provider failed and a placeholder was used.
	Fallback bool `json:"fallback,omitempty"`
}

// Kind implements TaskResult.
func (r *GenerateMindMapResult) Kind() TaskKind { return TaskKindGenerateMindMap }

// ExpandNodeResult holds the nodes and edges to append to the expanded map.
type ExpandNodeResult struct {
	NewNodes []Node `json:"new_nodes"`
	NewEdges []Edge `json:"new_edges"`
}

// Kind implements TaskResult.
func (r *ExpandNodeResult) Kind() TaskKind { return TaskKindExpandNode }

// DecodeTaskInput parses raw into the input type for kind. It does not
// validate; callers decide when validation applies.
func DecodeTaskInput(kind TaskKind, raw []byte) (TaskInput, error) {
	var in TaskInput
	switch kind {
	case TaskKindGenerateMindMap:
		in = &GenerateMindMapInput{}
	case TaskKindExpandNode:
		in = &ExpandNodeInput{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskKind, kind)
	}
	if isNullJSON(raw) {
		return nil, fmt.Errorf("%w: missing input_data", ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return in, nil
}

// DecodeTaskResult parses raw into the result type for kind. An empty or
// null payload yields a nil result.
func DecodeTaskResult(kind TaskKind, raw []byte) (TaskResult, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	var out TaskResult
	switch kind {
	case TaskKindGenerateMindMap:
		out = &GenerateMindMapResult{}
	case TaskKindExpandNode:
		out = &ExpandNodeResult{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskKind, kind)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", kind, err)
	}
	return out, nil
}

func isNullJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
