// Package grove implements the agent tree topology and cross-tier knowledge
// propagation, built entirely out of the core engines (correlation,
// knowledge).
package grove

import (
	"fmt"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/correlation"
	"github.com/sentrius/sag/pkg/sag/knowledge"
)

// AgentNode is one node in an agent tree, owning its own correlation and
// knowledge engines.
type AgentNode struct {
	AgentID    string
	Role       string
	Parent     *AgentNode
	Children   []*AgentNode
	Knowledge  *knowledge.Engine
	Correlation *correlation.Engine
	Metadata   map[string]any
}

func newAgentNode(agentID, role string, parent *AgentNode, metadata map[string]any) *AgentNode {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &AgentNode{
		AgentID:     agentID,
		Role:        role,
		Parent:      parent,
		Knowledge:   knowledge.New(agentID),
		Correlation: correlation.New(agentID),
		Metadata:    metadata,
	}
}

func (n *AgentNode) IsLeaf() bool { return len(n.Children) == 0 }
func (n *AgentNode) IsRoot() bool { return n.Parent == nil }

// TreeEngine manages a single-root tree of AgentNodes.
type TreeEngine struct {
	nodes map[string]*AgentNode
	root  *AgentNode
}

func NewTreeEngine() *TreeEngine {
	return &TreeEngine{nodes: map[string]*AgentNode{}}
}

// AddRoot creates and sets the tree's root node. Returns an error if a root
// already exists.
func (t *TreeEngine) AddRoot(agentID, role string, metadata map[string]any) (*AgentNode, error) {
	if t.root != nil {
		return nil, fmt.Errorf("tree already has a root node")
	}
	node := newAgentNode(agentID, role, nil, metadata)
	t.nodes[agentID] = node
	t.root = node
	return node, nil
}

// AddChild adds a new node under parentID.
func (t *TreeEngine) AddChild(parentID, agentID, role string, metadata map[string]any) (*AgentNode, error) {
	parent, ok := t.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("parent node '%s' not found", parentID)
	}
	if _, exists := t.nodes[agentID]; exists {
		return nil, fmt.Errorf("node '%s' already exists", agentID)
	}
	node := newAgentNode(agentID, role, parent, metadata)
	parent.Children = append(parent.Children, node)
	t.nodes[agentID] = node
	return node, nil
}

func (t *TreeEngine) GetNode(agentID string) (*AgentNode, bool) {
	n, ok := t.nodes[agentID]
	return n, ok
}

func (t *TreeEngine) GetRoot() (*AgentNode, error) {
	if t.root == nil {
		return nil, fmt.Errorf("tree has no root node")
	}
	return t.root, nil
}

// GetLeaves returns every node with no children, in GetAllNodeIDs order.
func (t *TreeEngine) GetLeaves() []*AgentNode {
	var leaves []*AgentNode
	for _, id := range t.GetAllNodeIDs() {
		n := t.nodes[id]
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// GetLevelsBottomUp groups nodes by depth, deepest level first.
func (t *TreeEngine) GetLevelsBottomUp() [][]*AgentNode {
	if t.root == nil {
		return nil
	}

	type queued struct {
		node  *AgentNode
		depth int
	}
	queue := []queued{{t.root, 0}}
	depthOf := map[string]int{}
	maxDepth := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		depthOf[item.node.AgentID] = item.depth
		if item.depth > maxDepth {
			maxDepth = item.depth
		}
		for _, child := range item.node.Children {
			queue = append(queue, queued{child, item.depth + 1})
		}
	}

	levels := make([][]*AgentNode, maxDepth+1)
	for _, id := range t.GetAllNodeIDs() {
		d := depthOf[id]
		levels[d] = append(levels[d], t.nodes[id])
	}

	reversed := make([][]*AgentNode, len(levels))
	for i, l := range levels {
		reversed[len(levels)-1-i] = l
	}
	return reversed
}

// GetDepth returns the tree's depth (0 for a lone root).
func (t *TreeEngine) GetDepth() int {
	if t.root == nil {
		return 0
	}
	return nodeDepth(t.root)
}

func nodeDepth(n *AgentNode) int {
	if len(n.Children) == 0 {
		return 0
	}
	max := 0
	for _, c := range n.Children {
		if d := nodeDepth(c); d > max {
			max = d
		}
	}
	return 1 + max
}

// GetAllNodeIDs returns every registered node id, walking depth-first from
// the root: a parent comes before its children, and a child's whole subtree
// comes before its next sibling.
func (t *TreeEngine) GetAllNodeIDs() []string {
	ids := make([]string, 0, len(t.nodes))
	seen := map[string]bool{}
	var walk func(n *AgentNode)
	walk = func(n *AgentNode) {
		if seen[n.AgentID] {
			return
		}
		seen[n.AgentID] = true
		ids = append(ids, n.AgentID)
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	return ids
}

// PropagateUp computes childID's knowledge delta addressed to its parent,
// applies it to the parent's knowledge engine, and acknowledges the sync on
// the child side so the same facts aren't redelivered. Returns the
// statements actually applied.
func (t *TreeEngine) PropagateUp(childID string) ([]ast.Knowledge, error) {
	child, ok := t.nodes[childID]
	if !ok {
		return nil, fmt.Errorf("node '%s' not found", childID)
	}
	if child.Parent == nil {
		return nil, nil
	}

	delta, err := child.Knowledge.ComputeDelta(child.Parent.AgentID)
	if err != nil {
		return nil, err
	}
	if len(delta) == 0 {
		return nil, nil
	}

	applied := child.Parent.Knowledge.ApplyIncoming(delta, childID)
	child.Knowledge.MarkDelivered(child.Parent.AgentID, delta)
	return applied, nil
}

// SetupSubscriptions wires every parent to subscribe to its children's
// facts under pattern (default "**": everything).
func (t *TreeEngine) SetupSubscriptions(pattern string) {
	if pattern == "" {
		pattern = "**"
	}
	for _, id := range t.GetAllNodeIDs() {
		node := t.nodes[id]
		for _, child := range node.Children {
			child.Knowledge.AddSubscriber(node.AgentID, pattern, "", false)
		}
	}
}

// RenderASCII draws the tree as an indented ASCII diagram, root first.
func (t *TreeEngine) RenderASCII() string {
	if t.root == nil {
		return "(empty tree)"
	}
	var lines []string
	var render func(node *AgentNode, prefix string, isLast bool)
	render = func(node *AgentNode, prefix string, isLast bool) {
		if node.IsRoot() {
			lines = append(lines, fmt.Sprintf("%s (%s)", node.Role, node.AgentID))
		} else {
			connector := "├── "
			if isLast {
				connector = "└── "
			}
			lines = append(lines, fmt.Sprintf("%s%s%s (%s)", prefix, connector, node.Role, node.AgentID))
		}
		childPrefix := prefix + "│   "
		if isLast {
			childPrefix = prefix + "    "
		}
		for i, child := range node.Children {
			render(child, childPrefix, i == len(node.Children)-1)
		}
	}
	render(t.root, "", true)

	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
