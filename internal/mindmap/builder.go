package mindmap

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/generation"
)

// Builder turns generator output into positioned nodes and edges.
type Builder struct {
	newID func() string
}

// NewBuilder returns a Builder that assigns random UUIDs to new nodes.
func NewBuilder() *Builder {
	return &Builder{newID: func() string { return uuid.NewString() }}
}

// NewBuilderWithIDs returns a Builder that takes node ids from newID.
func NewBuilderWithIDs(newID func() string) *Builder {
	return &Builder{newID: newID}
}

// Graph is a flat node-link graph.
type Graph struct {
	Nodes []domain.Node
	Edges []domain.Edge
}

// FromTree lays out a generated outline. Branch ids supplied by the model are
// kept unless they are empty or already used. An empty central topic falls
// back to fallbackTitle.
func (b *Builder) FromTree(tree *generation.MindMapTree, fallbackTitle string) Graph {
	label := strings.TrimSpace(tree.CentralTopic)
	if label == "" {
		label = fallbackTitle
	}
	g := b.Placeholder(label)
	rootID := g.Nodes[0].ID
	used := map[string]struct{}{rootID: {}}

	step := angleStep(fullCircleDegrees, len(tree.Branches))
	for i, branch := range tree.Branches {
		b.addBranch(&g, used, branch, rootID, i, step, 1)
	}
	return g
}

func (b *Builder) addBranch(g *Graph, used map[string]struct{}, br generation.Branch, parentID string, index int, step float64, level int) {
	id := strings.TrimSpace(br.ID)
	if _, taken := used[id]; id == "" || taken {
		id = b.newID()
	}
	used[id] = struct{}{}

	label := strings.TrimSpace(br.Label)
	if label == "" {
		label = fmt.Sprintf("Node %d", index+1)
	}

	color := levelColor(level - 1)
	pos := polar(domain.Position{X: RootX, Y: RootY}, branchRadiusStep*float64(level), float64(index)*step)
	g.Nodes = append(g.Nodes, domain.Node{
		ID:       id,
		Type:     domain.NodeTypeCustom,
		Position: pos,
		Data:     domain.NodeData{Label: label, Level: level},
		Style:    nodeStyle(color, "14px"),
		ParentID: parentID,
	})
	g.Edges = append(g.Edges, edge(parentID, id, color))

	childStep := angleStep(childArcDegrees, len(br.Children))
	for j, child := range br.Children {
		b.addBranch(g, used, child, id, j, childStep, level+1)
	}
}

// Placeholder returns a graph holding only a root node labelled title.
func (b *Builder) Placeholder(title string) Graph {
	root := domain.Node{
		ID:       b.newID(),
		Type:     domain.NodeTypeCustom,
		Position: domain.Position{X: RootX, Y: RootY},
		Data:     domain.NodeData{Label: title, Level: 0, IsRoot: true},
		Style:    rootStyle(),
	}
	return Graph{Nodes: []domain.Node{root}, Edges: []domain.Edge{}}
}

// Expand positions the children of an expansion around parent. At most
// maxChildren top-level children are kept. Nested children are placed around
// their own parent on a smaller radius.
func (b *Builder) Expand(parent domain.Node, exp *generation.Expansion, maxChildren int) Graph {
	g := Graph{Nodes: []domain.Node{}, Edges: []domain.Edge{}}
	if exp == nil {
		return g
	}
	children := exp.Children
	if maxChildren > 0 && len(children) > maxChildren {
		children = children[:maxChildren]
	}
	b.placeChildren(&g, parent, children, expansionRadius, "12px")
	return g
}

func (b *Builder) placeChildren(g *Graph, parent domain.Node, children []generation.ExpansionChild, radius float64, fontSize string) {
	n := len(children)
	step := angleStep(childArcDegrees, n)
	color := levelColor(parent.Data.Level)

	for i, child := range children {
		angle := (float64(i) - float64(n)/2) * step
		label := strings.TrimSpace(child.Label)
		if label == "" {
			label = fmt.Sprintf("New node %d", i+1)
		}
		node := domain.Node{
			ID:       b.newID(),
			Type:     domain.NodeTypeCustom,
			Position: polar(parent.Position, radius, angle),
			Data: domain.NodeData{
				Label:       label,
				Description: child.Description,
				Level:       parent.Data.Level + 1,
			},
			Style:    nodeStyle(color, fontSize),
			ParentID: parent.ID,
		}
		g.Nodes = append(g.Nodes, node)
		g.Edges = append(g.Edges, edge(parent.ID, node.ID, color))

		if len(child.Children) > 0 {
			b.placeChildren(g, node, child.Children, grandchildRadius, "11px")
		}
	}
}

// Ancestors returns the labels on the path from the root down to the parent
// of the node with id, following ParentID links. Unknown parents and cycles
// end the walk.
func Ancestors(nodes []domain.Node, id string) []string {
	byID := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var chain []string
	visited := map[string]struct{}{id: {}}
	current, ok := byID[id]
	for ok && current.ParentID != "" {
		if _, seen := visited[current.ParentID]; seen {
			break
		}
		visited[current.ParentID] = struct{}{}
		parent, found := byID[current.ParentID]
		if !found {
			break
		}
		chain = append(chain, parent.Data.Label)
		current, ok = parent, true
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
