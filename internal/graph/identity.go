package graph

import (
	"strconv"
	"strings"

	"github.com/flowviz-labs/flowviz/internal/flow"
)

// Node identity must be stable across re-materialization as long as the
// structure is unchanged; the reconciler's position preservation depends
// entirely on that. The fallback chains below are ordered and pure.

// TopNodeID resolves the identity of a top-level bubble: its variable id
// if known, else its map key.
func TopNodeID(b *flow.Bubble, key string) string {
	if b.VariableID != 0 {
		return strconv.Itoa(b.VariableID)
	}
	return key
}

// ChildNodeID resolves the identity of a nested dependency node. The
// chain is: explicit carried unique id; else its own variable id when
// positive; else a deterministic composite of parent identity, sanitized
// name, and structural path.
func ChildNodeID(parentID string, n *flow.DependencyNode, path []int) string {
	if n.UniqueID != "" {
		return n.UniqueID
	}
	if n.VariableID > 0 {
		return strconv.Itoa(n.VariableID)
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return parentID + "." + sanitizeName(n.Name) + "." + strings.Join(parts, ".")
}

// sanitizeName reduces a node name to a stable identifier fragment.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "node"
	}
	return b.String()
}
