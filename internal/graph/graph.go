// Package graph materializes a flow's bubble map into a positioned
// node/edge graph and reconciles successive materializations so that
// user-dragged positions and unrelated structure survive updates.
//
// The materialized graph is derived and disposable: it is never the
// system of record and is always recomputable from the bubble map plus
// execution and visibility state.
package graph

// Position is an on-screen node position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the render payload of a node, reflecting the execution
// state of the identity it is tagged with.
type NodeData struct {
	Label       string  `json:"label"`
	BubbleName  string  `json:"bubbleName,omitempty"`
	VariableID  int     `json:"variableId,omitempty"`
	Line        int     `json:"line,omitempty"`
	Running     bool    `json:"running,omitempty"`
	Completed   bool    `json:"completed,omitempty"`
	Failed      bool    `json:"failed,omitempty"`
	Errored     bool    `json:"errored,omitempty"`
	Highlighted bool    `json:"highlighted,omitempty"`
	ElapsedMS   float64 `json:"elapsedMs,omitempty"`
	HasChildren bool    `json:"hasChildren,omitempty"`
	Revealed    bool    `json:"revealed,omitempty"`
}

// Node is one rendered node, tagged with a deterministic identity.
type Node struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Edge connects two nodes. Sequential edges order top-level bubbles;
// parent edges attach revealed nested dependencies.
type Edge struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Parent     bool   `json:"parent,omitempty"`
	Emphasized bool   `json:"emphasized,omitempty"`
}

// Graph is one materialization result.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeIDs returns the identity set of the graph's nodes, in order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// FindNode returns the node with the given identity.
func (g *Graph) FindNode(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
