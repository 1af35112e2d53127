package graph

import (
	"github.com/flowviz-labs/flowviz/internal/flow"
	"github.com/flowviz-labs/flowviz/internal/state"
)

// Layout constants. Top-level bubbles sit left-to-right on a fixed row;
// nested nodes hang centered under their parent.
const (
	startX         = 80.0
	topRowY        = 80.0
	topColWidth    = 280.0
	childRowHeight = 140.0
	childColWidth  = 220.0
)

// childEntry is one nested dependency node discovered by the full-tree
// walk, before visibility filtering.
type childEntry struct {
	id           string
	parentID     string
	rootID       string
	node         *flow.DependencyNode
	siblingIndex int
	siblingCount int
}

// Materialize computes the rendered graph for a bubble map under the
// given execution snapshot, visibility state, and drag overrides. It is
// a pure function of its inputs: identical inputs produce identical
// node/edge identity sets in identical order.
func Materialize(m flow.BubbleMap, snap state.Snapshot, vis *Visibility, overrides map[string]Position) *Graph {
	keys := m.SortedKeys()

	topIDs := make([]string, len(keys))
	parentOf := make(map[string]string)
	rootOf := make(map[string]string)
	varToNode := make(map[int]string)
	var entries []childEntry

	// Full-tree walk first: node identities, the parent map, and the
	// variable-id index are needed before any visibility decision.
	for i, key := range keys {
		b := m[key]
		id := TopNodeID(b, key)
		topIDs[i] = id
		if b.VariableID != 0 {
			varToNode[b.VariableID] = id
		}
		if b.HasDependents() {
			visited := map[string]struct{}{id: {}}
			walkChildren(id, id, b.DepGraph.Deps, nil, visited, &entries, parentOf, rootOf, varToNode)
		}
	}

	// Highlight path: walk the parent map rootward until a root or an
	// unknown ancestor; the walked prefix is force-revealed.
	highlightID := ""
	if snap.Highlighted != nil {
		highlightID = varToNode[*snap.Highlighted]
	}
	onPath := make(map[string]struct{})
	for id := highlightID; id != ""; id = parentOf[id] {
		onPath[id] = struct{}{}
	}

	expanded, suppressed := vis.snapshot()
	rootRevealed := func(rootID string) bool {
		_, isExpanded := expanded[rootID]
		_, isSuppressed := suppressed[rootID]
		if isExpanded && !isSuppressed {
			return true
		}
		if snap.IsRunning {
			return true
		}
		_, ok := onPath[rootID]
		return ok
	}

	g := &Graph{}
	positions := make(map[string]Position)

	place := func(id string, def Position) Position {
		if p, ok := overrides[id]; ok {
			positions[id] = p
			return p
		}
		positions[id] = def
		return def
	}

	// Top-level nodes, left to right in source-line order.
	for i, key := range keys {
		b := m[key]
		id := topIDs[i]
		pos := place(id, Position{X: startX + float64(i)*topColWidth, Y: topRowY})
		g.Nodes = append(g.Nodes, Node{
			ID:       id,
			Position: pos,
			Data:     nodeData(b.VariableName, b.BubbleName, b.VariableID, b.Location.StartLine, b.HasDependents(), rootRevealed(id), snap, id, highlightID),
		})
	}

	// Nested nodes, pre-order per root. A node is included when its
	// root's sub-tree is revealed, or when a run is active and the node
	// lies on the highlight path regardless of suppression.
	for _, e := range entries {
		_, forced := onPath[e.id]
		if !rootRevealed(e.rootID) && !(snap.IsRunning && forced) {
			continue
		}
		parentPos, ok := positions[e.parentID]
		if !ok {
			// Parent filtered out (accidental orphan); skip rather
			// than render a detached node.
			continue
		}
		def := Position{
			X: parentPos.X + (float64(e.siblingIndex)-float64(e.siblingCount-1)/2)*childColWidth,
			Y: parentPos.Y + childRowHeight,
		}
		pos := place(e.id, def)
		g.Nodes = append(g.Nodes, Node{
			ID:       e.id,
			Position: pos,
			Data:     nodeData(e.node.Name, e.node.BubbleName, e.node.VariableID, 0, len(e.node.Deps) > 0, true, snap, e.id, highlightID),
		})
		g.Edges = append(g.Edges, Edge{
			ID:         "dep-" + e.parentID + "-" + e.id,
			Source:     e.parentID,
			Target:     e.id,
			Parent:     true,
			Emphasized: e.parentID == highlightID || e.id == highlightID,
		})
	}

	// Sequential flow edges between adjacent top-level bubbles.
	seq := make([]Edge, 0, len(topIDs))
	for i := 1; i < len(topIDs); i++ {
		a, b := topIDs[i-1], topIDs[i]
		seq = append(seq, Edge{
			ID:         "seq-" + a + "-" + b,
			Source:     a,
			Target:     b,
			Emphasized: a == highlightID || b == highlightID,
		})
	}
	g.Edges = append(seq, g.Edges...)

	return g
}

// walkChildren recurses through a dependency sub-tree in declaration
// order. The visited set is keyed by computed identity, so an accidental
// self-reference in a malformed tree terminates instead of recursing
// forever.
func walkChildren(parentID, rootID string, deps []*flow.DependencyNode, path []int, visited map[string]struct{}, entries *[]childEntry, parentOf, rootOf map[string]string, varToNode map[int]string) {
	for i, dep := range deps {
		childPath := append(append([]int(nil), path...), i)
		id := ChildNodeID(parentID, dep, childPath)
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		*entries = append(*entries, childEntry{
			id:           id,
			parentID:     parentID,
			rootID:       rootID,
			node:         dep,
			siblingIndex: i,
			siblingCount: len(deps),
		})
		parentOf[id] = parentID
		rootOf[id] = rootID
		if dep.VariableID != 0 {
			varToNode[dep.VariableID] = id
		}

		if len(dep.Deps) > 0 {
			walkChildren(id, rootID, dep.Deps, childPath, visited, entries, parentOf, rootOf, varToNode)
		}
	}
}

// nodeData folds the execution snapshot into one node's render payload.
func nodeData(label, bubbleName string, varID, line int, hasChildren, revealed bool, snap state.Snapshot, nodeID, highlightID string) NodeData {
	d := NodeData{
		Label:       label,
		BubbleName:  bubbleName,
		VariableID:  varID,
		Line:        line,
		HasChildren: hasChildren,
		Revealed:    revealed,
		Highlighted: nodeID != "" && nodeID == highlightID,
	}
	if varID != 0 {
		if _, ok := snap.Running[varID]; ok {
			d.Running = true
		}
		if ms, ok := snap.Completed[varID]; ok {
			d.Completed = true
			d.ElapsedMS = ms
			if passed, recorded := snap.Passed[varID]; recorded && !passed {
				d.Failed = true
			}
		}
		if snap.ErrorBubble != nil && *snap.ErrorBubble == varID {
			d.Errored = true
		}
	}
	return d
}
