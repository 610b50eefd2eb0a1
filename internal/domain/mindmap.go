package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Mind-map layouts and defaults.
const (
	LayoutHierarchical = "hierarchical"
	LayoutRadial       = "radial"
	LayoutForce        = "force"

	DefaultTheme = "default"

	// NodeTypeCustom is the renderer type assigned to generated nodes.
	NodeTypeCustom = "custom"
	// EdgeTypeSmoothStep is the renderer type assigned to generated edges.
	EdgeTypeSmoothStep = "smoothstep"
)

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the renderer payload of a node.
type NodeData struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Level       int    `json:"level"`
	IsRoot      bool   `json:"isRoot,omitempty"`
}

// NodeStyle is the inline style of a node.
type NodeStyle struct {
	Background   string `json:"background,omitempty"`
	Color        string `json:"color,omitempty"`
	Border       string `json:"border,omitempty"`
	BorderRadius string `json:"borderRadius,omitempty"`
	FontSize     string `json:"fontSize,omitempty"`
	FontWeight   string `json:"fontWeight,omitempty"`
}

// Node is one vertex of a node-link mind-map graph.
type Node struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Position Position   `json:"position"`
	Data     NodeData   `json:"data"`
	Style    *NodeStyle `json:"style,omitempty"`
	ParentID string     `json:"parent_id,omitempty"`
}

// EdgeStyle is the inline style of an edge.
type EdgeStyle struct {
	Stroke      string `json:"stroke,omitempty"`
	StrokeWidth int    `json:"strokeWidth,omitempty"`
}

// Edge connects two nodes by id.
type Edge struct {
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Type     string     `json:"type"`
	Animated bool       `json:"animated"`
	Style    *EdgeStyle `json:"style,omitempty"`
}

// EdgeID builds the conventional id of the edge from parent to child.
func EdgeID(parentID, childID string) string {
	return "edge-" + parentID + "-" + childID
}

// MindMap is a persisted mind-map document owned by a user.
type MindMap struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	Layout      string    `json:"layout"`
	Theme       string    `json:"theme"`
	IsPublic    bool      `json:"is_public"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMindMap creates a private, version 1 mind map with the default layout
// and theme. Returns an error if validation fails.
func NewMindMap(userID uuid.UUID, title, description string, nodes []Node, edges []Edge) (*MindMap, error) {
	now := time.Now().UTC()
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	m := &MindMap{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Nodes:       nodes,
		Edges:       edges,
		Layout:      LayoutHierarchical,
		Theme:       DefaultTheme,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks field limits and that node ids are unique.
func (m *MindMap) Validate() error {
	if m.UserID == uuid.Nil {
		return fmt.Errorf("%w: mind map owner cannot be empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(m.Title); n < 1 || n > MaxTopicLength {
		return fmt.Errorf("%w: title must be between 1 and %d characters", ErrValidation, MaxTopicLength)
	}
	if utf8.RuneCountInString(m.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description must be at most %d characters", ErrValidation, MaxDescriptionLength)
	}
	switch m.Layout {
	case LayoutHierarchical, LayoutRadial, LayoutForce:
	default:
		return fmt.Errorf("%w: unknown layout %q", ErrValidation, m.Layout)
	}

	seen := make(map[string]struct{}, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node id cannot be empty", ErrValidation)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrValidation, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// FindNode returns the node with the given id.
func FindNode(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
