package graph

// Reconcile merges a freshly materialized graph into the previously
// rendered one. Nodes whose identity is unchanged keep their current
// on-screen position even when the materializer proposed a different
// default; nodes only in next are added at their computed position;
// nodes absent from next are dropped. Edges are carried by identity,
// never mutated in place. When sameFlow is false the previous graph is
// discarded wholesale, positions included.
func Reconcile(prev, next *Graph, sameFlow bool) *Graph {
	if prev == nil || !sameFlow {
		return next
	}

	prevPos := make(map[string]Position, len(prev.Nodes))
	for _, n := range prev.Nodes {
		prevPos[n.ID] = n.Position
	}

	merged := &Graph{
		Nodes: make([]Node, len(next.Nodes)),
		Edges: make([]Edge, len(next.Edges)),
	}
	copy(merged.Nodes, next.Nodes)
	copy(merged.Edges, next.Edges)

	for i := range merged.Nodes {
		if pos, ok := prevPos[merged.Nodes[i].ID]; ok {
			merged.Nodes[i].Position = pos
		}
	}
	return merged
}

// Diff lists the node and edge identities added and removed between two
// materializations. Consumers use it to avoid gratuitous structural
// replacement when pushing updates.
type DiffResult struct {
	AddedNodes   []string
	RemovedNodes []string
	AddedEdges   []string
	RemovedEdges []string
}

// Diff compares prev and next by identity.
func Diff(prev, next *Graph) DiffResult {
	var res DiffResult

	prevNodes := make(map[string]struct{})
	if prev != nil {
		for _, n := range prev.Nodes {
			prevNodes[n.ID] = struct{}{}
		}
	}
	nextNodes := make(map[string]struct{}, len(next.Nodes))
	for _, n := range next.Nodes {
		nextNodes[n.ID] = struct{}{}
		if _, ok := prevNodes[n.ID]; !ok {
			res.AddedNodes = append(res.AddedNodes, n.ID)
		}
	}
	if prev != nil {
		for _, n := range prev.Nodes {
			if _, ok := nextNodes[n.ID]; !ok {
				res.RemovedNodes = append(res.RemovedNodes, n.ID)
			}
		}
	}

	prevEdges := make(map[string]struct{})
	if prev != nil {
		for _, e := range prev.Edges {
			prevEdges[e.ID] = struct{}{}
		}
	}
	nextEdges := make(map[string]struct{}, len(next.Edges))
	for _, e := range next.Edges {
		nextEdges[e.ID] = struct{}{}
		if _, ok := prevEdges[e.ID]; !ok {
			res.AddedEdges = append(res.AddedEdges, e.ID)
		}
	}
	if prev != nil {
		for _, e := range prev.Edges {
			if _, ok := nextEdges[e.ID]; !ok {
				res.RemovedEdges = append(res.RemovedEdges, e.ID)
			}
		}
	}

	return res
}
